package memory

import (
	"context"
	"sync"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ports"
)

// Feed is an in-process ports.EventSource.
// Publish delivers synchronously to every subscriber, in subscription order.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.Event)
	order  []int
	pubMu  sync.Mutex
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]func(domain.Event))}
}

// Subscribe implements ports.EventSource.
func (f *Feed) Subscribe(ctx context.Context, deliver func(domain.Event)) (ports.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = deliver
	f.order = append(f.order, id)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			for i, v := range f.order {
				if v == id {
					f.order = append(f.order[:i], f.order[i+1:]...)
					break
				}
			}
		})
	}, nil
}

// Publish delivers events to the current subscribers.
// Concurrent publishers are serialized so each subscriber sees one ordered stream.
func (f *Feed) Publish(events ...domain.Event) {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()

	for _, ev := range events {
		for _, deliver := range f.snapshot() {
			deliver(ev)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) snapshot() []func(domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]func(domain.Event), 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.subs[id])
	}
	return out
}
