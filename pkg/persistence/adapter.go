package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ejson"
	"github.com/aretw0/xui/pkg/ports"
)

// Adapter reads and writes session records on a KVStore.
type Adapter struct {
	store  ports.KVStore
	logger *slog.Logger
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithLogger configures a logger for read failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an Adapter over the given store.
func New(store ports.KVStore, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Read returns the record stored under key.
// A missing key, a backend failure or a malformed payload all yield an
// empty record; only the last two are logged.
func (a *Adapter) Read(ctx context.Context, key string) domain.Record {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			a.logger.Warn("Failed to read persisted session", "key", key, "err", err)
		}
		return domain.Record{}
	}

	rec, err := ejson.UnmarshalRecord(data)
	if err != nil {
		a.logger.Warn("Discarding malformed persisted session", "key", key, "err", err)
		return domain.Record{}
	}
	return rec
}

// Write encodes rec and overwrites the value stored under key.
func (a *Adapter) Write(ctx context.Context, key string, rec domain.Record) error {
	data, err := ejson.MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", domain.ErrPersistenceWrite, err)
	}
	if err := a.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceWrite, err)
	}
	return nil
}

// Clear removes the record stored under key. A missing key is not an error.
func (a *Adapter) Clear(ctx context.Context, key string) error {
	if err := a.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("failed to clear session %q: %w", key, err)
	}
	return nil
}
