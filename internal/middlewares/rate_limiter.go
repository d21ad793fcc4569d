package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lumbrjx/codek7/streaming/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Counter is the part of *redis.Client the limiter uses.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimit allows limit requests per client IP and window, counted in Redis
// under "rate:<prefix>:<ip>".
func RateLimit(rdb Counter, prefix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := r.RemoteAddr
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
			}

			key := "rate:" + prefix + ":" + ip

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.WithContext(ctx).Error("Rate limiter unavailable", "error", err.Error())
				writeError(w, http.StatusInternalServerError, "rate limiter unavailable")
				return
			}

			if count == 1 {
				rdb.Expire(ctx, key, window)
			}

			if count > int64(limit) {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
