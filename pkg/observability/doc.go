// Package observability exposes Prometheus metrics for the session store and
// the subscription reconciler. A nil *Metrics is valid and records nothing.
package observability
