package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/domain"
	"github.com/aretw0/xui/pkg/ejson"
	"github.com/aretw0/xui/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces collection channels.
const ChannelPrefix = "xui:collection:"

// Channel returns the pub/sub channel carrying events for a collection.
func Channel(collection string) string {
	return ChannelPrefix + collection
}

// Source implements ports.EventSource over a Redis pub/sub channel.
// Messages use the ejson event wire format.
type Source struct {
	client  *backend.Client
	channel string
	logger  *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSourceLogger configures a logger for dropped messages.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a source reading events for collection.
func NewSource(client *backend.Client, collection string, opts ...SourceOption) *Source {
	s := &Source{
		client:  client,
		channel: Channel(collection),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe implements ports.EventSource.
// It returns once Redis confirms the subscription. Pub/sub carries no
// snapshot, so a ready event is delivered as soon as the subscription is
// confirmed; ready events sent by publishers afterwards are passed through.
func (s *Source) Subscribe(ctx context.Context, deliver func(domain.Event)) (ports.CancelFunc, error) {
	ps := s.client.Subscribe(ctx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	msgs := ps.Channel()
	deliver(domain.Ready())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := ejson.DecodeEvent([]byte(msg.Payload))
				if err != nil {
					s.logger.Warn("Dropping malformed event", "channel", s.channel, "err", err)
					continue
				}
				if ctx.Err() != nil {
					return
				}
				deliver(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := ps.Close(); err != nil {
				s.logger.Warn("Failed to close subscription", "channel", s.channel, "err", err)
			}
		})
	}, nil
}

// Publisher writes events to a collection channel.
type Publisher struct {
	client *backend.Client
}

// NewPublisher creates a publisher on client.
func NewPublisher(client *backend.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish encodes and publishes ev. It returns the number of receivers.
func (p *Publisher) Publish(ctx context.Context, collection string, ev domain.Event) (int64, error) {
	payload, err := ejson.EncodeEvent(ev)
	if err != nil {
		return 0, fmt.Errorf("failed to encode event: %w", err)
	}
	n, err := p.client.Publish(ctx, Channel(collection), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish to redis: %w", err)
	}
	return n, nil
}
