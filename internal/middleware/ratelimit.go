package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/cache"
)

// RateLimiter enforces a per-minute burst limit on generation endpoints
// using a Redis fixed window. The daily quota is accounted separately in
// the generation pipeline; this only smooths bursts.
type RateLimiter struct {
	cache *cache.Redis
	limit int
}

// NewRateLimiter creates a new per-minute rate limiter
func NewRateLimiter(c *cache.Redis, perMinute int) *RateLimiter {
	return &RateLimiter{cache: c, limit: perMinute}
}

// Allow counts a request against the current minute window and reports
// whether it is within the limit, plus the remaining headroom.
func (rl *RateLimiter) Allow(ctx context.Context, identifier string) (bool, int, error) {
	window := time.Now().Unix() / 60
	key := fmt.Sprintf("ratelimit:minute:%s:%d", identifier, window)

	count, err := rl.cache.Incr(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count request: %w", err)
	}
	if count == 1 {
		// Window key is fresh; expire it after two windows to be safe.
		if err := rl.cache.Expire(ctx, key, 2*time.Minute); err != nil {
			return false, 0, fmt.Errorf("failed to expire window: %w", err)
		}
	}

	remaining := rl.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return int(count) <= rl.limit, remaining, nil
}

// RateLimit returns middleware enforcing the per-minute limit. The
// identifier is the authenticated user key when present, the client IP
// otherwise. A Redis outage fails open so the limiter can never take
// down all traffic by itself.
func RateLimit(limiter *RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := clientIdentifier(r)

			allowed, remaining, err := limiter.Allow(r.Context(), identifier)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "Too many requests this minute. Please slow down.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIdentifier picks the rate limit key for a request
func clientIdentifier(r *http.Request) string {
	if identity := auth.GetIdentity(r.Context()); identity != nil {
		return identity.UserKey
	}
	return getClientIP(r)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the chain
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr, stripping the port
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
		if ip[i] == ']' {
			// IPv6 address
			break
		}
	}
	return ip
}
