package control

import (
	"context"
	"time"
)

// Policy defines the upstream retry behavior.
type Policy struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	AttemptTimeout time.Duration
}

// DefaultPolicy returns 3 attempts, 0.5s base backoff and a 20s per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseBackoff:    500 * time.Millisecond,
		AttemptTimeout: 20 * time.Second,
	}
}

// Backoff returns the wait after the given 0-indexed attempt: base * 2^attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return p.BaseBackoff << uint(attempt)
}

// ShouldRetry returns whether another attempt may follow the given 0-indexed attempt.
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt+1 < p.MaxAttempts
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
