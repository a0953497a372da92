package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/auth"
	"github.com/solacewellness/solace/internal/metrics"
	"github.com/solacewellness/solace/internal/redis"
)

type contextKey string

// sessionContextKey carries the verified admin claims through admin routes.
const sessionContextKey contextKey = "session"

// ClientIP extracts the caller's address for rate limiting and request
// metadata. Proxy headers win over the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop is the client.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware enforces a fixed-window limit per client IP and sets
// the X-RateLimit-* headers on every response. A nil limiter disables
// enforcement (local development without Redis).
func RateLimitMiddleware(limiter *redis.RateLimiter, cfg redis.RateLimitConfig, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := scope + ":" + ClientIP(r)
			result := limiter.Check(r.Context(), identifier, cfg)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

			if !result.Success {
				retryAfter := int(time.Until(result.Reset).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				logger.Info("rate limit exceeded",
					zap.String("scope", scope),
					zap.String("ip", ClientIP(r)),
					zap.String("path", r.URL.Path),
				)
				metrics.RecordRateLimitRejection(scope)

				writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
					Error:      "Too many requests",
					Message:    fmt.Sprintf("Please wait %d seconds before trying again.", retryAfter),
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates admin routes on a valid session cookie. Verification
// happens here, once per request, rather than inside each handler.
func RequireAdmin(svc *auth.Service, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := svc.FromRequest(r)
			if err != nil {
				logger.Debug("admin request rejected",
					zap.String("path", r.URL.Path),
					zap.String("ip", ClientIP(r)),
				)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the verified claims set by RequireAdmin.
func SessionFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(sessionContextKey).(*auth.Claims)
	return claims
}
