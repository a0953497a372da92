package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RateLimitConfig defines a fixed-window limit.
type RateLimitConfig struct {
	MaxRequests int           // Maximum requests allowed per window
	Window      time.Duration // Window length
}

// Presets used by the API routes. A fixed window permits up to twice the
// configured maximum in a burst straddling a window boundary; acceptable
// for form abuse control.
var (
	FormSubmissionLimit = RateLimitConfig{MaxRequests: 5, Window: 15 * time.Minute}
	AuthLimit           = RateLimitConfig{MaxRequests: 5, Window: 15 * time.Minute}
	APILimit            = RateLimitConfig{MaxRequests: 100, Window: time.Minute}
	StrictLimit         = RateLimitConfig{MaxRequests: 3, Window: time.Hour}
)

// RateLimitResult reports the outcome of a rate limit check.
type RateLimitResult struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimiter implements fixed-window rate limiting backed by Redis, so the
// counters hold across gateway instances. Keys expire with the window;
// no sweeping is needed.
type RateLimiter struct {
	client *Client
	logger *zap.Logger
}

// NewRateLimiter creates a rate limiter on the shared Redis client.
func NewRateLimiter(client *Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
	}
}

// Check increments the counter for the identifier's current window and
// reports whether the request is within the limit. It never fails the
// caller: on a Redis error the request is allowed and the error logged,
// so a cache outage cannot take down form submission.
func (r *RateLimiter) Check(ctx context.Context, identifier string, cfg RateLimitConfig) RateLimitResult {
	key := fmt.Sprintf("ratelimit:%s:%d", identifier, cfg.Window.Milliseconds())

	count, err := r.client.rdb.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("rate limit check failed, allowing request",
			zap.Error(err),
			zap.String("identifier", identifier),
		)
		return RateLimitResult{
			Success:   true,
			Limit:     cfg.MaxRequests,
			Remaining: cfg.MaxRequests,
			Reset:     time.Now().Add(cfg.Window),
		}
	}

	// First hit in a window starts its expiry clock.
	if count == 1 {
		if err := r.client.rdb.PExpire(ctx, key, cfg.Window).Err(); err != nil {
			r.logger.Warn("failed to set rate limit expiry", zap.Error(err), zap.String("key", key))
		}
	}

	ttl, err := r.client.rdb.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = cfg.Window
	}

	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	success := count <= int64(cfg.MaxRequests)
	if !success {
		r.logger.Debug("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int64("count", count),
			zap.Int("limit", cfg.MaxRequests),
		)
	}

	return RateLimitResult{
		Success:   success,
		Limit:     cfg.MaxRequests,
		Remaining: remaining,
		Reset:     time.Now().Add(ttl),
	}
}
