package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
	"github.com/baechuer/contacts-service/internal/infrastructure/redis"
	"github.com/baechuer/contacts-service/internal/logger"
	"github.com/baechuer/contacts-service/internal/metrics"
)

type RateLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

// FixedWindowConfig is one route's budget: Limit requests per Window.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
}

// RateLimitFixedWindow counts requests per route and caller. The caller is
// the authenticated user when there is one, the client IP otherwise. If the
// limiter errors the request goes through.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RouteKey == "" {
		cfg.RouteKey = "default"
	}
	enabled := limiter != nil && cfg.Limit > 0

	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rl:" + cfg.RouteKey + ":" + userOrIP(r)
			dec, err := limiter.AllowFixedWindow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate_limiter_unavailable")
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordRateLimited(cfg.RouteKey)
			h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(dec.RetryAfter, cfg.Window)))
			writeErr(w, r, domain.ErrRateLimited(cfg.RouteKey))
		})
	}
}

// retryAfterSeconds rounds up and never returns less than one second.
func retryAfterSeconds(d, window time.Duration) int {
	if d <= 0 {
		d = window
	}
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}

func userOrIP(r *http.Request) string {
	if uid, ok := UserIDFromContext(r.Context()); ok {
		return "u:" + uid
	}
	return "ip:" + clientIP(r)
}

// clientIP takes the first X-Forwarded-For hop, which is only meaningful
// behind a proxy we run, then falls back to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
