/*
Package ports defines the driven ports (interfaces) of the session store and
the subscription reconciler.

These interfaces decouple the core logic from external implementations, so the
same store can persist to memory, files or Redis, and the same reconciler can
consume events from an in-process feed, Redis pub/sub, SSE or WebSockets.

# Key Interfaces

  - KVStore: durable byte storage under string keys, used by the persistence adapter.
  - EventSource: a cancellable push stream of subscription events.
*/
package ports
