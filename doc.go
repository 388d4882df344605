/*
Package xui provides reactive client state for Go programs: a session store
whose fields notify handlers and persist to a durable slot, and live
collections reconciled from a stream of added, changed and removed events.

# Concept

Session state is a fixed set of typed fields declared with defaults. Reads
never fail. A set notifies the handlers of that field in registration order
and, when asked, writes the whole state under one durable key.

Collections are materialized from an event source. The initial documents
arrive as added events, a ready event marks the end of the snapshot, and
later events keep the ordered list current.

# Usage

	store, err := xui.NewSession(ctx, map[string]any{
		"theme":           "light",
		"localStorageKey": "app-session",
	}, memory.NewStore())
	if err != nil {
		log.Fatal(err)
	}
	_ = store.Set(ctx, "theme", "dark", session.WithPersist())

	sub, err := subscription.Start(ctx, xhttp.NewSSESource("http://localhost:8080", "todos"),
		func(docs []domain.Document) { fmt.Println(len(docs)) })

# Packages

  - pkg/session: Store, handlers and the per-field registry.
  - pkg/persistence: record codec over a ports.KVStore, with encryption middleware.
  - pkg/subscription: Subscription and the Collection reducer.
  - pkg/adapters: memory, file and redis stores; memory, redis and HTTP event sources.
  - cmd/xui: command line for the durable session and collection streams.
*/
package xui
