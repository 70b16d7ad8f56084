package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/copydesk/internal/api/response"
	"github.com/kiranshivaraju/copydesk/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// RateLimit provides fixed-window rate limiting of intents via Redis.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware. A nil cache disables
// limiting.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit counts requests against bucket. The session has a single actor, so
// buckets are per intent group rather than per client.
func (rl *RateLimit) Limit(bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil || rl.cache == nil {
			return next
		}
		key := cache.RateLimitKey(bucket)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
			if err != nil {
				// fail open
				slog.Warn("rate limit check failed", "bucket", bucket, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := rl.requestsPerMin - int(count)
			if remaining < 0 {
				remaining = 0
			}
			resetTime := time.Now().Add(rateWindow).Unix()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

			if count > int64(rl.requestsPerMin) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
				response.Error(w, http.StatusTooManyRequests,
					"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
