package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// MetadataKey is the huma operation metadata key holding an EndpointConfig.
const MetadataKey = "rateLimit"

// Limit allows at most Max requests per sliding Window.
type Limit struct {
	Window time.Duration
	Max    int64
}

// EndpointConfig attaches limits to a single operation.
type EndpointConfig struct {
	Limits   []Limit
	Disabled bool
}

// EndpointConfigFor reads the config from op metadata. Operations without one
// get the limiter's defaults.
func EndpointConfigFor(op *huma.Operation) (EndpointConfig, bool) {
	if op == nil || op.Metadata == nil {
		return EndpointConfig{}, false
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)

	return cfg, ok
}

// Store counts requests per key over a sliding window. Keys combine the
// client, the route template and the window length.
type Store interface {
	// Record adds a request at the current time, drops those older than
	// window and returns how many remain, the new one included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}

// Exceeded describes the limit a request ran into.
type Exceeded struct {
	Limit Limit
	Count int64
}

func (e *Exceeded) String() string {
	return fmt.Sprintf("%d/%d requests in %s", e.Count, e.Limit.Max, e.Limit.Window)
}

// Limiter applies sliding window limits per client and route.
type Limiter struct {
	store    Store
	defaults []Limit
}

// NewLimiter creates a limiter using defaults for unconfigured routes.
func NewLimiter(store Store, defaults []Limit) *Limiter {
	return &Limiter{store: store, defaults: defaults}
}

// Allow records the request and returns the first exceeded limit, or nil.
func (l *Limiter) Allow(ctx context.Context, clientKey, route string, limits []Limit) (*Exceeded, error) {
	if len(limits) == 0 {
		limits = l.defaults
	}

	for _, limit := range limits {
		// Counters are per client, route template and window.
		key := fmt.Sprintf("%s:%s:%d", clientKey, route, limit.Window.Milliseconds())

		count, err := l.store.Record(ctx, key, limit.Window)
		if err != nil {
			return nil, err
		}

		if count > limit.Max {
			return &Exceeded{Limit: limit, Count: count}, nil
		}
	}

	return nil, nil
}
