/*
Package domain contains the core types shared by the session store and the
subscription reconciler.

It is kept free of I/O and persistence concerns. Adapters and services import
it; it imports nothing from the rest of the module.

# Key Entities

  - Record: a field-name keyed map, used both for session state and for the durable record.
  - Defaults: the declared session fields, their default values, and the durable key.
  - ChangeRecord: the before/after snapshot passed to change handlers.
  - Event: a tagged mutation event (ready, added, changed, removed) on a remote collection.
  - Document: one entry of a materialized collection.
*/
package domain
