package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/xui/internal/config"
	"github.com/aretw0/xui/pkg/adapters/file"
	xhttp "github.com/aretw0/xui/pkg/adapters/http"
	"github.com/aretw0/xui/pkg/adapters/memory"
	xredis "github.com/aretw0/xui/pkg/adapters/redis"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/persistence"
	"github.com/aretw0/xui/pkg/persistence/middleware"
	"github.com/aretw0/xui/pkg/ports"
	"github.com/aretw0/xui/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// Options holds the global command line flags.
type Options struct {
	ConfigPath string
	Debug      bool
	Out        io.Writer
}

// App wires the configured backends for one command invocation.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer

	redis *backend.Client
	store ports.KVStore
}

// NewApp loads the configuration and prepares an App.
func NewApp(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &App{
		Config: cfg,
		Logger: createLogger(opts.Debug),
		Out:    out,
	}, nil
}

// Close releases the connections opened by the App.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func (a *App) redisClient() *backend.Client {
	if a.redis == nil {
		rc := a.Config.Store.Redis
		a.redis = backend.NewClient(&backend.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
	}
	return a.redis
}

// OpenStore returns the durable backend, wrapped with encryption when a
// key is configured. The same store is returned on every call.
func (a *App) OpenStore() (ports.KVStore, error) {
	if a.store != nil {
		return a.store, nil
	}

	sc := a.Config.Store
	var store ports.KVStore
	switch sc.Driver {
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(sc.Path)
	case "redis":
		var opts []xredis.Option
		if sc.Redis.Prefix != "" {
			opts = append(opts, xredis.WithPrefix(sc.Redis.Prefix))
		}
		if sc.Redis.TTL > 0 {
			opts = append(opts, xredis.WithTTL(sc.Redis.TTL))
		}
		store = xredis.NewFromClient(a.redisClient(), opts...)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrConfiguration, sc.Driver)
	}

	active, fallbacks, err := sc.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
		a.Logger.Debug("Encryption at rest enabled", "fallback_keys", len(fallbacks))
	}

	a.store = store
	return store, nil
}

// OpenSession hydrates the session store from the configured backend.
func (a *App) OpenSession(ctx context.Context) (*session.Store, error) {
	defaults, err := a.Config.Defaults()
	if err != nil {
		return nil, err
	}
	store, err := a.OpenStore()
	if err != nil {
		return nil, err
	}
	adapter := persistence.New(store, persistence.WithLogger(a.Logger))
	return session.New(ctx, defaults, adapter, session.WithLogger(a.Logger))
}

// OpenSource returns the event source of collection for the configured transport.
func (a *App) OpenSource(collection string) (ports.EventSource, error) {
	tc := a.Config.Transport
	switch tc.Kind {
	case "redis":
		return xredis.NewSource(a.redisClient(), collection, xredis.WithSourceLogger(a.Logger)), nil
	case "sse":
		return xhttp.NewSSESource(tc.URL, collection, xhttp.WithClientLogger(a.Logger)), nil
	case "ws":
		return xhttp.NewWSSource(tc.URL, collection, xhttp.WithClientLogger(a.Logger)), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport kind %q", domain.ErrConfiguration, tc.Kind)
	}
}

// Publish sends ev to collection over the configured transport.
func (a *App) Publish(ctx context.Context, collection string, ev domain.Event) error {
	tc := a.Config.Transport
	switch tc.Kind {
	case "redis":
		n, err := xredis.NewPublisher(a.redisClient()).Publish(ctx, collection, ev)
		if err != nil {
			return err
		}
		a.Logger.Debug("Published event", "collection", collection, "event", ev.Kind, "receivers", n)
		return nil
	case "sse", "ws":
		return xhttp.NewPublisher(tc.URL).Publish(ctx, collection, ev)
	default:
		return errors.New("no publisher for transport " + tc.Kind)
	}
}
