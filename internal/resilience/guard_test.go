package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGuard("report", Config{
		Timeout:          time.Second,
		FailureThreshold: 2,
		Cooldown:         50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	boom := errors.New("boom")
	calls := 0
	fail := func(context.Context) error {
		calls++
		return boom
	}

	for i := 0; i < 2; i++ {
		if err := g.Do(context.Background(), fail); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected boom, got %v", i, err)
		}
	}

	if err := g.Do(context.Background(), fail); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("open circuit must not call through, calls=%d", calls)
	}

	time.Sleep(70 * time.Millisecond)

	if err := g.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("half-open trial should pass, got %v", err)
	}
	if g.State() != "closed" {
		t.Fatalf("expected closed after successful trial, got %s", g.State())
	}
}

func TestGuard_AppliesTimeout(t *testing.T) {
	g := NewGuard("chat", Config{Timeout: 20 * time.Millisecond})

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGuard_CallerCancelNotCounted(t *testing.T) {
	g := NewGuard("chat", Config{FailureThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = g.Do(ctx, func(ctx context.Context) error { return ctx.Err() })

	if g.State() != "closed" {
		t.Fatalf("cancelled call should not trip the breaker, state=%s", g.State())
	}
}

func TestGuard_RecordFailureFiltersErrors(t *testing.T) {
	rejected := errors.New("rejected input")
	g := NewGuard("report", Config{
		Timeout:          time.Second,
		FailureThreshold: 1,
		RecordFailure: func(err error) bool {
			return !errors.Is(err, rejected)
		},
	})

	for i := 0; i < 3; i++ {
		if err := g.Do(context.Background(), func(context.Context) error { return rejected }); !errors.Is(err, rejected) {
			t.Fatalf("attempt %d: expected rejected, got %v", i, err)
		}
	}
	if g.State() != "closed" {
		t.Fatalf("ignored errors must not open the circuit, state=%s", g.State())
	}

	_ = g.Do(context.Background(), func(context.Context) error { return errors.New("down") })
	if g.State() != "open" {
		t.Fatalf("expected open after a counted failure, got %s", g.State())
	}
}
