package pubsub

import (
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"os"
	"prism/entity"
	"testing"
	"time"
)

type sinkFunc func(ctx context.Context, env entity.Envelope) error

func (f sinkFunc) Deliver(ctx context.Context, env entity.Envelope) error {
	return f(ctx, env)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay(t *testing.T) {
	var got []entity.Envelope
	b := NewBridge(nil, "prism:events", sinkFunc(func(_ context.Context, env entity.Envelope) error {
		got = append(got, env)
		return nil
	}), discard())

	event := entity.Event{Type: entity.EventStatusUpdated, AgencyID: "agency-1", ClientID: "client-1", NewState: entity.StateInterested}
	payload, err := json.Marshal(entity.Envelope{Event: event, Audience: entity.AudienceFor(event)})
	require.NoError(t, err)

	b.relay(context.Background(), string(payload))
	b.relay(context.Background(), "{not json")

	require.Len(t, got, 1)
	assert.Equal(t, entity.StateInterested, got[0].Event.NewState)
	assert.Equal(t, "client-1", got[0].Audience.ClientID)
}

// Requires a reachable Redis at REDIS_ADDR_TEST.
func TestBridge_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = rdb.Close() }()

	received := make(chan entity.Envelope, 1)
	b := NewBridge(rdb, "prism:test:"+time.Now().Format("150405.000"), sinkFunc(func(_ context.Context, env entity.Envelope) error {
		received <- env
		return nil
	}), discard())
	go func() { _ = b.Run(ctx) }()

	event := entity.Event{Type: entity.EventChatEscalated, AgencyID: "agency-1"}
	require.Eventually(t, func() bool {
		_ = b.Deliver(ctx, entity.Envelope{Event: event, Audience: entity.AudienceFor(event)})
		select {
		case env := <-received:
			return env.Event.Type == entity.EventChatEscalated
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
