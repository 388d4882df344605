package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/observability"
	"github.com/aretw0/xui/pkg/ports"
	"github.com/google/uuid"
)

// State is the lifecycle position of a Subscription.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UpdateFunc receives a fresh copy of the documents after every mutation.
type UpdateFunc func(docs []domain.Document)

// Subscription materializes one event stream.
type Subscription struct {
	id       string
	onUpdate UpdateFunc
	onReady  func()
	idField  string
	logger   *slog.Logger
	metrics  *observability.Metrics

	// deliverMu serializes event processing and callbacks.
	deliverMu sync.Mutex

	mu        sync.Mutex
	state     State
	ready     bool
	coll      *Collection
	cancel    ports.CancelFunc
	stopWatch func() bool
}

// Option configures a Subscription.
type Option func(*Subscription)

// WithOnReady sets the callback fired on the first ready event.
func WithOnReady(fn func()) Option {
	return func(s *Subscription) {
		s.onReady = fn
	}
}

// WithIDField sets the document identifier field. Defaults to "_id".
func WithIDField(field string) Option {
	return func(s *Subscription) {
		s.idField = field
	}
}

// WithLogger configures a logger for the Subscription.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Subscription) {
		s.logger = logger
	}
}

// WithMetrics records processed events on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Subscription) {
		s.metrics = m
	}
}

// Start attaches to source and begins reconciling.
// onUpdate is called synchronously on the delivering goroutine; it may be nil.
// Cancelling ctx stops the subscription.
func Start(ctx context.Context, source ports.EventSource, onUpdate UpdateFunc, opts ...Option) (*Subscription, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: event source is required", domain.ErrConfiguration)
	}

	s := &Subscription{
		id:       uuid.NewString(),
		onUpdate: onUpdate,
		idField:  domain.DefaultIDField,
		logger:   logging.NewNop(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coll = NewCollection(s.idField)
	s.logger = s.logger.With("subscription_id", s.id)

	s.mu.Lock()
	s.state = StateStarting
	s.mu.Unlock()

	cancel, err := source.Subscribe(ctx, s.deliver)
	if err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	s.metrics.SubscriptionStarted()

	s.mu.Lock()
	s.cancel = cancel
	s.stopWatch = context.AfterFunc(ctx, s.Stop)
	s.mu.Unlock()

	s.logger.Debug("Subscription started", "id_field", s.idField)
	return s, nil
}

// Stop detaches from the source. It is idempotent and never blocks on
// callbacks, so it can be called from inside them. Once Stop returns no
// further event is applied and no new callback starts; a callback that was
// already running when Stop was called may finish.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	cancel := s.cancel
	stopWatch := s.stopWatch
	s.coll = NewCollection(s.idField)
	s.mu.Unlock()

	if stopWatch != nil {
		stopWatch()
	}
	if cancel != nil {
		cancel()
		s.metrics.SubscriptionStopped()
	}
	s.logger.Debug("Subscription stopped")
}

func (s *Subscription) deliver(ev domain.Event) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.logger.Debug("Delivering event", "event", ev.Kind)

	// The stopped check and the choice of callback happen under one lock
	// section, so a Stop that returns first always wins.
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.metrics.ObserveEvent(string(ev.Kind))

	if ev.Kind == domain.EventReady {
		if s.ready {
			s.mu.Unlock()
			return
		}
		s.ready = true
		s.state = StateReady
		onReady := s.onReady
		s.mu.Unlock()

		if onReady != nil {
			onReady()
		}
		s.logger.Debug("Subscription ready")
		return
	}

	if !s.coll.Apply(ev) {
		s.mu.Unlock()
		id, _ := ev.Document.ID(s.idField)
		s.logger.Debug("Ignoring event", "event", ev.Kind, "doc_id", id)
		return
	}
	docs := s.coll.Snapshot()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(docs)
	}
}

// ID returns the subscription identifier used in logs.
func (s *Subscription) ID() string {
	return s.id
}

// State returns the lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the initial snapshot has been delivered.
func (s *Subscription) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Documents returns a copy of the current documents.
func (s *Subscription) Documents() []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Snapshot()
}

// One returns the first document, or nil when the collection is empty.
func (s *Subscription) One() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coll.Len() == 0 {
		return nil
	}
	return s.coll.docs[0].Clone()
}
