package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ledger-shortener/internal/ratelimit"
	"github.com/serroba/ledger-shortener/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Record(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	perMinute := []ratelimit.Limit{{Window: time.Minute, Max: 3}}

	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), perMinute)

		for range 3 {
			exceeded, err := limiter.Allow(ctx, "client1", "/shorten", nil)

			require.NoError(t, err)
			assert.Nil(t, exceeded)
		}
	})

	t.Run("denies requests over limit", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), perMinute)

		for range 3 {
			_, _ = limiter.Allow(ctx, "client1", "/shorten", nil)
		}

		exceeded, err := limiter.Allow(ctx, "client1", "/shorten", nil)

		require.NoError(t, err)
		require.NotNil(t, exceeded)
		assert.Equal(t, int64(4), exceeded.Count)
		assert.Equal(t, "4/3 requests in 1m0s", exceeded.String())
	})

	t.Run("tracks clients and routes independently", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.Limit{{Window: time.Minute, Max: 1}})

		_, _ = limiter.Allow(ctx, "client1", "/shorten", nil)

		exceeded, _ := limiter.Allow(ctx, "client1", "/shorten", nil)
		assert.NotNil(t, exceeded)

		exceeded, _ = limiter.Allow(ctx, "client2", "/shorten", nil)
		assert.Nil(t, exceeded)

		exceeded, _ = limiter.Allow(ctx, "client1", "/{code}", nil)
		assert.Nil(t, exceeded)
	})

	t.Run("endpoint limits replace defaults", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), perMinute)
		strict := []ratelimit.Limit{{Window: time.Minute, Max: 1}, {Window: time.Hour, Max: 10}}

		_, _ = limiter.Allow(ctx, "client1", "/shorten", strict)
		exceeded, err := limiter.Allow(ctx, "client1", "/shorten", strict)

		require.NoError(t, err)
		require.NotNil(t, exceeded)
		assert.Equal(t, time.Minute, exceeded.Limit.Window)
	})

	t.Run("allows requests after window expires", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		memStore := store.NewRateLimitMemoryStore().WithClock(func() time.Time { return now })
		limiter := ratelimit.NewLimiter(memStore, perMinute)

		for range 4 {
			_, _ = limiter.Allow(ctx, "client1", "/shorten", nil)
		}

		now = now.Add(61 * time.Second)

		exceeded, err := limiter.Allow(ctx, "client1", "/shorten", nil)

		require.NoError(t, err)
		assert.Nil(t, exceeded)
	})

	t.Run("store errors are returned", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(failingStore{}, perMinute)

		_, err := limiter.Allow(ctx, "client1", "/shorten", nil)

		assert.Error(t, err)
	})
}

func TestEndpointConfigFor(t *testing.T) {
	t.Run("reads operation metadata", func(t *testing.T) {
		cfg := ratelimit.EndpointConfig{Disabled: true}
		op := &huma.Operation{Metadata: map[string]any{ratelimit.MetadataKey: cfg}}

		got, ok := ratelimit.EndpointConfigFor(op)

		assert.True(t, ok)
		assert.Equal(t, cfg, got)
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, ok := ratelimit.EndpointConfigFor(&huma.Operation{})
		assert.False(t, ok)

		_, ok = ratelimit.EndpointConfigFor(nil)
		assert.False(t, ok)
	})
}
