// Package redisfanout spreads realtime broadcasts across gateway instances over a Redis
// pub/sub channel. Every instance runs a Relay; a Publisher on any instance reaches the
// connections of all of them.
package redisfanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/adapters/in/realtime"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "dispatch:realtime"

// Options configures the Redis connection.
type Options struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connect parses the URL, applies the non-zero overrides and verifies connectivity.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.URL == "" {
		return nil, errors.New("redis url is required")
	}
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.PoolSize > 0 {
		parsed.PoolSize = opts.PoolSize
	}
	if opts.DialTimeout > 0 {
		parsed.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		parsed.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		parsed.WriteTimeout = opts.WriteTimeout
	}

	client := redis.NewClient(parsed)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

var _ realtime.Fanout = (*Publisher)(nil)

// Publisher is a realtime.Fanout that publishes on Redis. When Redis is unreachable the
// broadcast still reaches this instance's connections through fallback.
type Publisher struct {
	client   publisher
	channel  string
	fallback realtime.Deliverer
}

// NewPublisher creates a Publisher. An empty channel selects DefaultChannel.
func NewPublisher(client publisher, channel string, fallback realtime.Deliverer) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, fallback: fallback}
}

// Publish sends b to every subscribed instance.
func (p *Publisher) Publish(ctx context.Context, b realtime.Broadcast) error {
	message, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	if err = p.client.Publish(ctx, p.channel, message).Err(); err != nil {
		if p.fallback != nil {
			p.fallback.Deliver(b)
		}
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// Relay delivers broadcasts published by any instance to the local connections.
type Relay struct {
	client    *redis.Client
	channel   string
	deliverer realtime.Deliverer
	logger    zerolog.Logger
	ready     chan struct{}
}

// NewRelay creates a Relay. An empty channel selects DefaultChannel.
func NewRelay(client *redis.Client, channel string, deliverer realtime.Deliverer, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		client:    client,
		channel:   channel,
		deliverer: deliverer,
		logger:    logger,
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes and delivers until ctx is done. It returns nil on cancellation.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	close(r.ready)
	r.logger.Info().Str("channel", r.channel).Msg("relay subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *redis.Message) {
	var b realtime.Broadcast
	if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
		r.logger.Warn().Err(err).Msg("drop undecodable broadcast")
		return
	}
	delivered := r.deliverer.Deliver(b)
	r.logger.Debug().Str("event", b.Event).Int("delivered", delivered).Msg("broadcast relayed")
}
