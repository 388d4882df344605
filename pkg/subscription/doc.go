/*
Package subscription reconciles a stream of collection events into an
ordered, observable list of documents.

A Subscription attaches to a ports.EventSource and feeds every event through
a Collection. Each mutation hands a fresh copy of the documents to the
update callback; the first ready event flips the readiness flag and calls
the ready callback once.

	sub, err := subscription.Start(ctx, feed, func(docs []domain.Document) {
		render(docs)
	}, subscription.WithOnReady(func() { log.Println("initial snapshot loaded") }))
	defer sub.Stop()

Stop may be called any number of times, from any goroutine, including from
inside the callbacks.
*/
package subscription
