package logger

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"sync"
	"testing"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureSender) SendMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func TestTelegramHandler_OnlyForwardsAtLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sender := &captureSender{}

	lg := SetupTelegramHandler(base, sender, slog.LevelError).With(slog.String("module", "core"))
	lg.Info("routine")
	lg.Error("escalation delivery", slog.String("thread", "t1"))

	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "ERROR: escalation delivery")
	assert.Contains(t, sender.msgs[0], "module: core")
	assert.Contains(t, sender.msgs[0], "thread: t1")
	assert.Contains(t, buf.String(), "routine")
}
