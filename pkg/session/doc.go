/*
Package session implements a field-addressable reactive session store.

A Store is seeded from declared defaults merged with the record found in a
durable slot. Every Set captures the previous value, updates memory,
optionally persists the whole state, and then notifies the handlers
registered for that field one after another, in registration order.

	store, err := session.New(ctx, defaults, persistence.New(memory.NewStore()))
	h := session.NewHandler(func(ctx context.Context, rec domain.ChangeRecord) error {
		log.Printf("%s: %v -> %v", rec.Field, rec.PreviousValue, rec.Value)
		return nil
	})
	store.OnSet("theme", h)
	err = store.Set(ctx, "theme", "dark", session.WithPersist())

Hydration keeps a persisted value only when it has the kind of its
default; a mismatch keeps the default. Persisted numbers decode as float64
and are converted back to float32 or integer defaults when the value fits.

Concurrent calls to Set on the same field are not serialized: both capture
their previous value independently and the last write wins.
*/
package session
