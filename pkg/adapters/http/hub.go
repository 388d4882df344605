package http

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ejson"
	"github.com/aretw0/xui/pkg/subscription"
)

// DefaultBuffer is the per-client queue length before messages are dropped.
const DefaultBuffer = 64

type topic struct {
	coll *subscription.Collection
	subs map[chan []byte]struct{}
}

// Hub tracks collections and their live subscribers.
type Hub struct {
	mu      sync.Mutex
	topics  map[string]*topic
	idField string
	buffer  int
	logger  *slog.Logger
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger configures a logger for the Hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithBuffer sets the per-client queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithHubIDField sets the document identifier field. Defaults to "_id".
func WithHubIDField(field string) HubOption {
	return func(h *Hub) {
		h.idField = field
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		topics:  make(map[string]*topic),
		idField: domain.DefaultIDField,
		buffer:  DefaultBuffer,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) topic(name string) *topic {
	t, ok := h.topics[name]
	if !ok {
		t = &topic{
			coll: subscription.NewCollection(h.idField),
			subs: make(map[chan []byte]struct{}),
		}
		h.topics[name] = t
	}
	return t
}

// Publish applies ev to the collection and broadcasts it.
// Ready events are not broadcast: every stream gets its own ready marker
// once its backlog is sent. It returns the number of clients reached.
func (h *Hub) Publish(collection string, ev domain.Event) (int, error) {
	if !ev.Kind.Valid() {
		return 0, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.Kind == domain.EventReady {
		return 0, nil
	}

	msg, err := ejson.EncodeEvent(ev)
	if err != nil {
		return 0, fmt.Errorf("failed to encode event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.topic(collection)
	if !t.coll.Apply(ev) {
		h.logger.Debug("Hub: event did not change collection", "collection", collection, "event", ev.Kind)
	}

	sent := 0
	for ch := range t.subs {
		select {
		case ch <- msg:
			sent++
		default:
			// A skipped event would leave the client's collection diverged
			// for good. Disconnect it instead; a reconnect gets a fresh backlog.
			delete(t.subs, ch)
			close(ch)
			h.logger.Warn("Hub: client buffer full, disconnecting", "collection", collection)
		}
	}
	h.logger.Debug("Hub: broadcast", "collection", collection, "event", ev.Kind, "clients", sent)
	return sent, nil
}

// Subscribe registers a client on collection. backlog holds the current
// documents as added events followed by a ready event; live messages arrive
// on ch after that. ch is closed when cancel is called or when the client
// falls a full buffer behind. cancel must be called to release the client.
func (h *Hub) Subscribe(collection string) (backlog [][]byte, ch <-chan []byte, cancel func(), err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.topic(collection)
	for _, doc := range t.coll.Snapshot() {
		msg, err := ejson.EncodeEvent(domain.Added(doc))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode backlog: %w", err)
		}
		backlog = append(backlog, msg)
	}
	ready, err := ejson.EncodeEvent(domain.Ready())
	if err != nil {
		return nil, nil, nil, err
	}
	backlog = append(backlog, ready)

	c := make(chan []byte, h.buffer)
	t.subs[c] = struct{}{}

	var once sync.Once
	return backlog, c, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := t.subs[c]; ok {
				delete(t.subs, c)
				close(c)
			}
		})
	}, nil
}

// Documents returns the current documents of collection.
func (h *Hub) Documents(collection string) []domain.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[collection]
	if !ok {
		return []domain.Document{}
	}
	return t.coll.Snapshot()
}

// Clients returns the number of clients attached to collection.
func (h *Hub) Clients(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[collection]; ok {
		return len(t.subs)
	}
	return 0
}
