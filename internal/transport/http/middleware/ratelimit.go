package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/infrastructure/redis"
	"github.com/icritic/users-service/internal/logger"
	reqctx "github.com/icritic/users-service/internal/pkg/context"
)

type RateLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

type FixedWindowConfig struct {
	Scope  string // e.g. "sign_in"
	Limit  int
	Window time.Duration
}

// RateLimitFixedWindow limits per client IP. Limiter failures let the
// request through.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Scope == "" {
		cfg.Scope = "default"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := reqctx.GetClientIP(r.Context())
			if ip == "" {
				ip = clientIP(r)
			}

			dec, err := limiter.AllowFixedWindow(r.Context(), redis.RateLimitKey(cfg.Scope, ip), cfg.Limit, cfg.Window)
			if err != nil {
				lg := logger.WithCtx(r.Context())
				lg.Warn().Err(err).Str("scope", cfg.Scope).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			if !dec.Allowed {
				secs := int((dec.RetryAfter + time.Second - 1) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeErr(w, r, domain.ErrRateLimited(cfg.Scope))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
