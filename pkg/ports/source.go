package ports

import (
	"context"

	"github.com/aretw0/xui/pkg/domain"
)

// CancelFunc tears down a subscription. It must be safe to call more than once.
type CancelFunc func()

// EventSource produces subscription events for one remote collection.
type EventSource interface {
	// Subscribe attaches deliver to the stream. Events for a given document
	// identifier are delivered in causal order; deliver is never called
	// concurrently with itself for the same subscription.
	// The returned CancelFunc stops delivery.
	Subscribe(ctx context.Context, deliver func(domain.Event)) (CancelFunc, error)
}
