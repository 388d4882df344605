package xui

import (
	"context"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/persistence"
	"github.com/aretw0/xui/pkg/ports"
	"github.com/aretw0/xui/pkg/session"
)

// Config bundles the options of NewSession.
type Config struct {
	PersistenceOptions []persistence.Option
	SessionOptions     []session.Option
}

// Option configures NewSession.
type Option func(*Config)

// WithPersistenceOptions passes options to the persistence adapter.
func WithPersistenceOptions(opts ...persistence.Option) Option {
	return func(c *Config) {
		c.PersistenceOptions = append(c.PersistenceOptions, opts...)
	}
}

// WithSessionOptions passes options to the session store.
func WithSessionOptions(opts ...session.Option) Option {
	return func(c *Config) {
		c.SessionOptions = append(c.SessionOptions, opts...)
	}
}

// NewSession parses the flat defaults surface
//
//	{ <field>: <default>, ..., localStorageKey: "<key>" }
//
// and hydrates a session store persisted on kv.
func NewSession(ctx context.Context, defaults map[string]any, kv ports.KVStore, opts ...Option) (*session.Store, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	d, err := domain.ParseDefaults(defaults)
	if err != nil {
		return nil, err
	}
	return session.New(ctx, d, persistence.New(kv, cfg.PersistenceOptions...), cfg.SessionOptions...)
}
