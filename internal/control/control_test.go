package control

import (
	"context"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if p.AttemptTimeout != 20*time.Second {
		t.Fatalf("unexpected attempt timeout: %s", p.AttemptTimeout)
	}
}

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{-1, 0},
	}
	for _, c := range cases {
		got := p.Backoff(c.attempt)
		if got != c.want {
			t.Fatalf("attempt=%d got=%s want=%s", c.attempt, got, c.want)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	if !p.ShouldRetry(0) {
		t.Fatal("attempt 0 should retry")
	}
	if !p.ShouldRetry(1) {
		t.Fatal("attempt 1 should retry")
	}
	if p.ShouldRetry(2) {
		t.Fatal("attempt 2 is the last one")
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep ignored cancellation")
	}
}

func TestSleep_Elapses(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
