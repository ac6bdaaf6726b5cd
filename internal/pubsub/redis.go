// Package pubsub shares event envelopes between API replicas over a Redis channel.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/redis/go-redis/v9"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"time"
)

const relayTimeout = 5 * time.Second

// Sink receives envelopes read from the channel, usually the local socket hub.
type Sink interface {
	Deliver(ctx context.Context, env entity.Envelope) error
}

type Bridge struct {
	rdb     *redis.Client
	channel string
	sink    Sink
	log     *slog.Logger
}

// Connect opens a client and checks it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewBridge(rdb *redis.Client, channel string, sink Sink, log *slog.Logger) *Bridge {
	return &Bridge{
		rdb:     rdb,
		channel: channel,
		sink:    sink,
		log:     log.With(sl.Module("pubsub"), slog.String("channel", channel)),
	}
}

func (b *Bridge) Name() string {
	return "redis"
}

// Deliver publishes env to the channel. Every replica, this one included,
// relays it to its own sink.
func (b *Bridge) Deliver(ctx context.Context, env entity.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Run subscribes to the channel and relays envelopes until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	b.log.Info("subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(ctx, msg.Payload)
		}
	}
}

func (b *Bridge) relay(ctx context.Context, payload string) {
	var env entity.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.With(sl.Err(err)).Warn("malformed envelope")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, relayTimeout)
	defer cancel()
	if err := b.sink.Deliver(ctx, env); err != nil {
		b.log.With(sl.Err(err), slog.String("type", string(env.Event.Type))).Warn("relay to sink")
	}
}
