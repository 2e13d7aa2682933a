package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/ledger-shortener/internal/middleware"
	"github.com/serroba/ledger-shortener/internal/ratelimit"
	"github.com/serroba/ledger-shortener/internal/store"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type failingStore struct{}

func (failingStore) Record(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func setupLimitedAPI(t *testing.T, limiter *ratelimit.Limiter, cfg *ratelimit.EndpointConfig) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RateLimiter(api, limiter, zap.NewNop()))

	op := huma.Operation{
		OperationID: "limited",
		Method:      http.MethodGet,
		Path:        "/limited",
	}
	if cfg != nil {
		op.Metadata = map[string]any{ratelimit.MetadataKey: *cfg}
	}

	huma.Register(api, op, func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return &testOutput{Body: "ok"}, nil
	})

	return router
}

func hit(router http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("X-Forwarded-For", ip)
	req.Header.Set("User-Agent", "TestAgent/1.0")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w.Code
}

func TestRateLimiter(t *testing.T) {
	t.Run("uses the operation limits", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), nil)
		router := setupLimitedAPI(t, limiter, &ratelimit.EndpointConfig{
			Limits: []ratelimit.Limit{{Window: time.Minute, Max: 2}},
		})

		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.2"), "clients are limited separately")
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.Limit{{Window: time.Minute, Max: 1}})
		router := setupLimitedAPI(t, limiter, nil)

		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.1"))
	})

	t.Run("skips disabled operations", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.Limit{{Window: time.Minute, Max: 1}})
		router := setupLimitedAPI(t, limiter, &ratelimit.EndpointConfig{Disabled: true})

		for range 3 {
			assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1"))
		}
	})

	t.Run("store failure is an internal error", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(failingStore{}, []ratelimit.Limit{{Window: time.Minute, Max: 1}})
		router := setupLimitedAPI(t, limiter, nil)

		assert.Equal(t, http.StatusInternalServerError, hit(router, "10.0.0.1"))
	})
}
