package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/circuitbreaker"
)

// ProtectedMarketing wraps a Marketing client with a circuit breaker so a
// Klaviyo outage fails fast instead of holding fan-out goroutines open for
// the full HTTP timeout on every submission.
type ProtectedMarketing struct {
	inner   Marketing
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewProtectedMarketing wraps a marketing client with breaker protection.
func NewProtectedMarketing(inner Marketing, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *ProtectedMarketing {
	return &ProtectedMarketing{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

// SyncProfile forwards to the wrapped client when the circuit allows it.
func (p *ProtectedMarketing) SyncProfile(ctx context.Context, profile Profile) error {
	if !p.breaker.Allow() {
		p.logger.Warn("circuit breaker rejected marketing sync",
			zap.String("breaker", p.breaker.Name()),
			zap.String("state", p.breaker.GetState().String()),
		)
		return fmt.Errorf("%w: %s unavailable", circuitbreaker.ErrCircuitOpen, p.breaker.Name())
	}

	if err := p.inner.SyncProfile(ctx, profile); err != nil {
		p.breaker.RecordFailure()
		return err
	}

	p.breaker.RecordSuccess()
	return nil
}
