package circuitbreaker

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBreaker(maxFailures int, recovery time.Duration) *CircuitBreaker {
	return New(Config{
		Name:                "test",
		MaxFailures:         maxFailures,
		RecoveryTimeout:     recovery,
		HalfOpenMaxRequests: 1,
	}, zap.NewNop())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !cb.Allow() {
			t.Fatalf("request %d should be allowed while closed", i+1)
		}
		cb.RecordFailure()
	}

	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Fatal("open breaker must reject requests")
	}
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.GetState() != StateClosed {
		t.Fatalf("non-consecutive failures must not open the breaker, got %s", cb.GetState())
	}
}

func TestBreakerProbesAfterRecoveryTimeout(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("probe request should be allowed after recovery timeout")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.GetState())
	}

	// Second request during the probe window is rejected.
	if cb.Allow() {
		t.Fatal("only one probe request is allowed")
	}

	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Fatalf("successful probe should close the circuit, got %s", cb.GetState())
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("probe should be allowed")
	}
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Fatalf("failed probe should re-open the circuit, got %s", cb.GetState())
	}
}

func TestBreakerSnapshotAndReset(t *testing.T) {
	cb := newTestBreaker(1, time.Minute)

	cb.Allow()
	cb.RecordFailure()
	cb.Allow() // rejected

	stats := cb.Snapshot()
	if stats.State != "open" {
		t.Errorf("expected open state in snapshot, got %s", stats.State)
	}
	if stats.TotalRejected != 1 {
		t.Errorf("expected 1 rejection, got %d", stats.TotalRejected)
	}

	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Fatal("reset must close the circuit")
	}
	if !cb.Allow() {
		t.Fatal("requests should pass after reset")
	}
}
