package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ejson"
	"github.com/aretw0/xui/pkg/ports"
	"github.com/gorilla/websocket"
	"github.com/r3labs/sse/v2"
)

// ClientOption configures SSESource, WSSource and Publisher.
type ClientOption func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger
}

// WithHTTPClient sets the client used for SSE and publishing.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithDialer sets the WebSocket dialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(cfg *clientConfig) {
		cfg.dialer = d
	}
}

// WithClientLogger configures a logger for dropped messages.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

func newClientConfig(opts []ClientOption) clientConfig {
	cfg := clientConfig{
		httpClient: http.DefaultClient,
		dialer:     websocket.DefaultDialer,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func collectionURL(base, collection, suffix string) string {
	return strings.TrimRight(base, "/") + "/collections/" + url.PathEscape(collection) + suffix
}

// SSESource streams a collection from a Hub over Server-Sent Events.
type SSESource struct {
	url string
	cfg clientConfig
}

// NewSSESource creates a source for collection on the server at baseURL.
func NewSSESource(baseURL, collection string, opts ...ClientOption) *SSESource {
	return &SSESource{
		url: collectionURL(baseURL, collection, "/events"),
		cfg: newClientConfig(opts),
	}
}

// Subscribe implements ports.EventSource. It returns once the server has
// accepted the stream.
func (s *SSESource) Subscribe(ctx context.Context, deliver func(domain.Event)) (ports.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.cfg.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected status from %s: %s", s.url, resp.Status)
	}

	go func() {
		defer resp.Body.Close()
		err := readSSE(resp.Body, func(event, data string) {
			if event != "" && event != "message" {
				return
			}
			ev, err := ejson.DecodeEvent([]byte(data))
			if err != nil {
				s.cfg.logger.Warn("Dropping malformed event", "url", s.url, "err", err)
				return
			}
			if ctx.Err() != nil {
				return
			}
			deliver(ev)
		})
		if err != nil && ctx.Err() == nil {
			s.cfg.logger.Warn("SSE stream ended", "url", s.url, "err", err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

// readSSE parses an event stream and calls dispatch for every event that
// carries data. A trailing event without a blank line is dispatched at EOF.
func readSSE(r io.Reader, dispatch func(event, data string)) error {
	reader := sse.NewEventStreamReader(r, maxEventSize)
	for {
		raw, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if event, data, ok := parseSSEEvent(raw); ok {
			dispatch(event, data)
		}
	}
}

func parseSSEEvent(raw []byte) (event, data string, ok bool) {
	var buf bytes.Buffer
	for _, line := range bytes.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' }) {
		switch {
		case bytes.HasPrefix(line, []byte(":")):
			// comment
		case bytes.HasPrefix(line, []byte("event:")):
			event = string(bytes.TrimSpace(bytes.TrimPrefix(line, []byte("event:"))))
		case bytes.HasPrefix(line, []byte("data:")):
			if ok {
				buf.WriteByte('\n')
			}
			buf.Write(bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" ")))
			ok = true
		}
	}
	return event, buf.String(), ok
}

// WSSource streams a collection from a Hub over a WebSocket.
type WSSource struct {
	url string
	cfg clientConfig
}

// NewWSSource creates a source for collection on the server at baseURL.
// An http(s) scheme is rewritten to ws(s).
func NewWSSource(baseURL, collection string, opts ...ClientOption) *WSSource {
	u := collectionURL(baseURL, collection, "/ws")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &WSSource{url: u, cfg: newClientConfig(opts)}
}

// Subscribe implements ports.EventSource.
func (s *WSSource) Subscribe(ctx context.Context, deliver func(domain.Event)) (ports.CancelFunc, error) {
	conn, _, err := s.cfg.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", s.url, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.cfg.logger.Warn("WS stream ended", "url", s.url, "err", err)
				}
				cancel()
				return
			}
			ev, err := ejson.DecodeEvent(msg)
			if err != nil {
				s.cfg.logger.Warn("Dropping malformed event", "url", s.url, "err", err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			deliver(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

// Publisher posts events to a Hub.
type Publisher struct {
	baseURL string
	cfg     clientConfig
}

// NewPublisher creates a publisher for the server at baseURL.
func NewPublisher(baseURL string, opts ...ClientOption) *Publisher {
	return &Publisher{baseURL: baseURL, cfg: newClientConfig(opts)}
}

// Publish sends ev to collection.
func (p *Publisher) Publish(ctx context.Context, collection string, ev domain.Event) error {
	payload, err := ejson.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		collectionURL(p.baseURL, collection, "/events"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.cfg.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("publish rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
