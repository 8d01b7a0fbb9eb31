package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"

	"example.com/healthtracker/internal/observability"
)

type RequestRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RateLimit caps requests per client address for the named router.
// Limiter errors fail open. A nil resolver keys on the direct peer address.
func RateLimit(rateLimiter RequestRateLimiter, clients *ClientResolver, routerName string, allowedPerMin int, metricsManager *observability.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := rateLimiter.Allow(
				r.Context(),
				routerName+":"+clients.Address(r),
				redis_rate.PerMinute(allowedPerMin),
			)
			if err != nil {
				log.Warnf("rate limiter unavailable for %s: %v", routerName, err)
				next.ServeHTTP(w, r)
				return
			}

			if res.Allowed > 0 {
				next.ServeHTTP(w, r)
				return
			}

			if metricsManager != nil {
				metricsManager.CounterRateLimited.Inc()
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", res.RetryAfter.Seconds()))
			writeError(w, http.StatusTooManyRequests, "rate_limited",
				fmt.Sprintf("retry after %.0f seconds", res.RetryAfter.Seconds()))
		})
	}
}
