package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/ledger-shortener/internal/analytics"
	"github.com/serroba/ledger-shortener/internal/analytics/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoop_SaveLinkCreated(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	noop := store.NewNoop(zap.New(core))

	event := &analytics.LinkCreatedEvent{
		Code:       "aZ3kQ9",
		LongURL:    "https://example.com",
		Reused:     true,
		AuthMethod: "ArConnect",
		CreatedAt:  time.Now(),
	}

	err := noop.SaveLinkCreated(context.Background(), event)

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "aZ3kQ9", logs.All()[0].ContextMap()["code"])
	assert.Equal(t, true, logs.All()[0].ContextMap()["reused"])
}

func TestNoop_SaveLinkResolved(t *testing.T) {
	noop := store.NewNoop(zap.NewNop())

	event := &analytics.LinkResolvedEvent{
		Code:       "aZ3kQ9",
		ResolvedAt: time.Now(),
		ClientIP:   "127.0.0.1",
		UserAgent:  "TestAgent/1.0",
		Referrer:   "https://referrer.com",
	}

	err := noop.SaveLinkResolved(context.Background(), event)

	require.NoError(t, err)
}
