/*
Package http exposes collections over HTTP.

A Hub keeps the current documents of every collection and fans events out to
connected clients. NewHandler mounts it on a chi router:

	GET  /health
	GET  /metrics
	GET  /collections/{name}            current documents as JSON
	GET  /collections/{name}/events     Server-Sent Events stream
	GET  /collections/{name}/ws         WebSocket stream
	POST /collections/{name}/events     publish one event

Every stream starts with the current documents as added events followed by a
ready event, then carries live events. SSESource and WSSource are the client
side: both implement ports.EventSource.
*/
package http
