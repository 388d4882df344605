package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	xhttp "github.com/aretw0/xui/pkg/adapters/http"
	xredis "github.com/aretw0/xui/pkg/adapters/redis"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/observability"
	"github.com/aretw0/xui/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// Server is a running hub with its bridges.
type Server struct {
	Hub     *xhttp.Hub
	Handler http.Handler
	Metrics *observability.Metrics
	cancels []ports.CancelFunc
}

// Close detaches the bridges.
func (s *Server) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// NewServer builds the hub handler. Each bridged collection is fed from
// the redis channel of the same name.
func (a *App) NewServer(ctx context.Context, bridges []string) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(reg)

	hub := xhttp.NewHub(
		xhttp.WithHubLogger(a.Logger),
		xhttp.WithHubIDField(a.Config.Transport.IDField),
	)
	srv := &Server{
		Hub:     hub,
		Handler: xhttp.NewHandler(hub, xhttp.WithLogger(a.Logger), xhttp.WithGatherer(reg)),
		Metrics: metrics,
	}

	for _, collection := range bridges {
		source := xredis.NewSource(a.redisClient(), collection, xredis.WithSourceLogger(a.Logger))
		cancel, err := source.Subscribe(ctx, func(ev domain.Event) {
			metrics.ObserveEvent(string(ev.Kind))
			if _, err := hub.Publish(collection, ev); err != nil {
				a.Logger.Warn("Bridge: publish failed", "collection", collection, "err", err)
			}
		})
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("failed to bridge %s: %w", collection, err)
		}
		srv.cancels = append(srv.cancels, cancel)
		a.Logger.Info("Bridging collection from redis", "collection", collection)
	}
	return srv, nil
}

// Serve runs the hub on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context, bridges []string) error {
	srv, err := a.NewServer(ctx, bridges)
	if err != nil {
		return err
	}
	defer srv.Close()

	ln, err := net.Listen("tcp", a.Config.Transport.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Config.Transport.Listen, err)
	}
	return a.serveOn(ctx, ln, srv.Handler)
}

func (a *App) serveOn(ctx context.Context, ln net.Listener, handler http.Handler) error {
	httpSrv := &http.Server{
		Handler: handler,
		// Streams end with ctx instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		fmt.Fprintf(a.Out, "Starting xui hub on %s\n", ln.Addr())
		serverErrors <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := httpSrv.Close(); err != nil {
				return fmt.Errorf("failed to stop server: %w", err)
			}
		}
		fmt.Fprintln(a.Out, "xui hub stopped gracefully")
		return nil
	}
}
