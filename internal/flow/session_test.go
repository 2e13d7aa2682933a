package flow_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/ledger-shortener/internal/flow"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	t.Run("open and get", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		sessions := flow.NewSessions(h.factory, time.Minute)

		session := sessions.Open()

		got, ok := sessions.Get(session.ID)
		require.True(t, ok)
		assert.Same(t, session, got)
		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("sessions are independent", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		sessions := flow.NewSessions(h.factory, time.Minute)

		a := sessions.Open()
		b := sessions.Open()

		_, err := a.Wallet.Connect(context.Background())
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, wallet.StateConnected, a.Wallet.State())
		assert.Equal(t, wallet.StateDisconnected, b.Wallet.State())
	})

	t.Run("idle sessions expire", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		sessions := flow.NewSessions(h.factory, time.Minute).WithClock(func() time.Time { return now })

		session := sessions.Open()

		now = now.Add(30 * time.Second)
		_, ok := sessions.Get(session.ID)
		require.True(t, ok, "use refreshes the session")

		now = now.Add(90 * time.Second)
		_, ok = sessions.Get(session.ID)
		assert.False(t, ok)
		assert.Equal(t, 0, sessions.Len())
	})

	t.Run("open sweeps expired sessions", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		sessions := flow.NewSessions(h.factory, time.Minute).WithClock(func() time.Time { return now })

		sessions.Open()
		sessions.Open()

		now = now.Add(2 * time.Minute)
		sessions.Open()

		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("close discards the wallet session", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		sessions := flow.NewSessions(h.factory, 0)
		session := sessions.Open()

		_, err := session.Wallet.Connect(context.Background())
		require.NoError(t, err)

		assert.True(t, sessions.Close(session.ID))
		assert.False(t, sessions.Close(session.ID))
		assert.Equal(t, wallet.StateDisconnected, session.Wallet.State())

		_, ok := sessions.Get(session.ID)
		assert.False(t, ok)
	})

	t.Run("shutdown disconnects every wallet", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		sessions := flow.NewSessions(h.factory, time.Minute)
		a := sessions.Open()
		b := sessions.Open()

		for _, s := range []*flow.AppSession{a, b} {
			_, err := s.Wallet.Connect(context.Background())
			require.NoError(t, err)
		}

		require.NoError(t, sessions.Shutdown())

		assert.Equal(t, 0, sessions.Len())
		assert.Equal(t, wallet.StateDisconnected, a.Wallet.State())
		assert.Equal(t, wallet.StateDisconnected, b.Wallet.State())
	})
}

func TestSessionContext(t *testing.T) {
	h := newHarness(t, 0, "aZ3kQ9")
	session := h.factory.NewSession()

	ctx := flow.ContextWithSession(context.Background(), session)

	got, ok := flow.SessionFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = flow.SessionFromContext(context.Background())
	assert.False(t, ok)
}
