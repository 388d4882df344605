package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/observability"
)

// Persister is the durable slot the store hydrates from and writes to.
// persistence.Adapter implements it.
type Persister interface {
	Read(ctx context.Context, key string) domain.Record
	Write(ctx context.Context, key string, rec domain.Record) error
}

// Store holds the session fields in memory.
type Store struct {
	key       string
	kinds     map[string]domain.FieldKind
	persister Persister
	registry  *registry

	mu    sync.RWMutex
	state domain.Record

	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics records sets and failures on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New validates defaults and hydrates a Store from persister.
// A persisted value replaces a default only when the field is present in
// the durable record and the value matches the type of the default. A value
// of another type is ignored with a warning and the default is kept, so a
// field that changed type between releases falls back to its new default.
//
// Numbers come back from the durable record as float64. A float32 default
// converts them to float32; an integer default converts integral values in
// range to its type. Any other number stays float64.
func New(ctx context.Context, defaults domain.Defaults, persister Persister, opts ...Option) (*Store, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	if persister == nil {
		return nil, fmt.Errorf("%w: persister is required", domain.ErrConfiguration)
	}

	s := &Store{
		key:       defaults.Key,
		kinds:     make(map[string]domain.FieldKind, len(defaults.Fields)),
		persister: persister,
		registry:  newRegistry(),
		state:     make(domain.Record, len(defaults.Fields)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	persisted := persister.Read(ctx, s.key)
	for field, def := range defaults.Fields {
		kind := domain.KindOf(def)
		s.kinds[field] = kind
		s.state[field] = domain.CloneValue(def)

		v, ok := persisted[field]
		if !ok {
			continue
		}
		if !kind.Accepts(v) {
			s.logger.Warn("Ignoring persisted value of unexpected type",
				"key", s.key,
				"field", field,
				"kind", kind,
				"type", fmt.Sprintf("%T", v),
			)
			continue
		}
		s.state[field] = coerceNumber(def, v)
	}

	s.logger.Debug("Session hydrated", "key", s.key, "fields", len(s.state), "persisted", len(persisted))
	return s, nil
}

// Key returns the durable key the store persists under.
func (s *Store) Key() string {
	return s.key
}

// Get returns the current value of field, or nil if it is not declared.
func (s *Store) Get(field string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state[field]
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Fields returns the declared field kinds.
func (s *Store) Fields() map[string]domain.FieldKind {
	out := make(map[string]domain.FieldKind, len(s.kinds))
	for k, v := range s.kinds {
		out[k] = v
	}
	return out
}

type setOptions struct {
	persist bool
}

// SetOption configures a single Set call.
type SetOption func(*setOptions)

// WithPersist writes the whole state to the durable slot.
func WithPersist() SetOption {
	return Persist(true)
}

// Persist sets whether the call writes the whole state to the durable slot.
func Persist(enabled bool) SetOption {
	return func(o *setOptions) {
		o.persist = enabled
	}
}

// Set updates field and notifies its handlers.
//
// A persistence failure does not roll back the in-memory value nor skip the
// handlers; it is returned wrapped in domain.ErrPersistenceWrite once the
// handlers are done. The first failing handler stops the chain and its
// error is returned as a *HandlerError.
func (s *Store) Set(ctx context.Context, field string, value any, opts ...SetOption) error {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	if _, ok := s.kinds[field]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}

	s.mu.Lock()
	previous := s.state[field]
	s.state[field] = value
	var snapshot domain.Record
	if o.persist {
		snapshot = s.state.Clone()
	}
	s.mu.Unlock()
	s.metrics.ObserveSet(field)

	var persistErr error
	if o.persist {
		if err := s.persister.Write(ctx, s.key, snapshot); err != nil {
			persistErr = wrapPersistErr(err)
			s.metrics.ObservePersistError()
			s.logger.Warn("Failed to persist session", "key", s.key, "field", field, "err", err)
		}
	}

	rec := domain.ChangeRecord{Field: field, PreviousValue: previous, Value: value}
	for _, h := range s.registry.handlers(field) {
		if err := h.fn(ctx, rec); err != nil {
			s.metrics.ObserveHandlerError(field)
			s.logger.Debug("Session handler failed", "field", field, "handler_id", h.id, "err", err)
			herr := &HandlerError{Field: field, HandlerID: h.id, Err: err}
			if persistErr != nil {
				return errors.Join(persistErr, herr)
			}
			return herr
		}
	}
	return persistErr
}

// OnSet appends h to the handlers of field.
func (s *Store) OnSet(field string, h *Handler) {
	if h == nil {
		return
	}
	s.registry.add(field, h)
}

// OnSetRemove removes h from every field it was registered on.
func (s *Store) OnSetRemove(h *Handler) {
	if h == nil {
		return
	}
	s.registry.remove(h)
}

// HandlerCount returns how many handlers are registered on field.
func (s *Store) HandlerCount(field string) int {
	return s.registry.count(field)
}

func wrapPersistErr(err error) error {
	if errors.Is(err, domain.ErrPersistenceWrite) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceWrite, err)
}

// coerceNumber converts a decoded float64 to the numeric type of def.
func coerceNumber(def, v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if _, ok := def.(float32); ok {
		return float32(f)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return v
	}
	switch def.(type) {
	case int:
		if f >= math.MinInt64 && f < math.MaxInt64 {
			return int(f)
		}
	case int8:
		if f >= math.MinInt8 && f <= math.MaxInt8 {
			return int8(f)
		}
	case int16:
		if f >= math.MinInt16 && f <= math.MaxInt16 {
			return int16(f)
		}
	case int32:
		if f >= math.MinInt32 && f <= math.MaxInt32 {
			return int32(f)
		}
	case int64:
		if f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
	case uint:
		if f >= 0 && f < math.MaxUint64 {
			return uint(f)
		}
	case uint8:
		if f >= 0 && f <= math.MaxUint8 {
			return uint8(f)
		}
	case uint16:
		if f >= 0 && f <= math.MaxUint16 {
			return uint16(f)
		}
	case uint32:
		if f >= 0 && f <= math.MaxUint32 {
			return uint32(f)
		}
	case uint64:
		if f >= 0 && f < math.MaxUint64 {
			return uint64(f)
		}
	}
	return v
}
