package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ledger-shortener/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a Huma middleware applying per-operation limits.
// Operations without a ratelimit.EndpointConfig get the limiter defaults.
func RateLimiter(
	api huma.API,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		route := ""
		if op := ctx.Operation(); op != nil {
			route = op.Path
		}

		cfg, _ := ratelimit.EndpointConfigFor(ctx.Operation())
		if cfg.Disabled {
			next(ctx)

			return
		}

		exceeded, err := limiter.Allow(ctx.Context(), clientKey(ctx), route, cfg.Limits)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", route), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if exceeded != nil {
			logger.Warn("rate limit exceeded",
				zap.String("path", route),
				zap.String("method", ctx.Method()),
				zap.Int64("count", exceeded.Count),
				zap.Int64("max", exceeded.Limit.Max),
				zap.Duration("window", exceeded.Limit.Window),
				zap.String("client_ip", extractClientIP(ctx)),
			)
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded: "+exceeded.String())

			return
		}

		next(ctx)
	}
}

// clientKey identifies a client by IP and User-Agent.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(extractClientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}
