/*
Package persistence bridges the session store and a durable key-value slot.

The Adapter encodes a whole session record with the ejson codec, so dates
survive a round trip as dates, and writes it under a single key. Reads never
fail: a missing or unreadable record hydrates as empty and the store falls
back to its defaults.

Stores can be wrapped with the middlewares from the middleware subpackage,
for example to encrypt the record at rest.
*/
package persistence
