package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type Config struct {
	Timeout          time.Duration // hard timeout per call
	FailureThreshold uint32        // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls uint32        // allow N trial calls in half-open

	// RecordFailure decides whether err counts against the breaker.
	// Nil uses countsAsFailure.
	RecordFailure func(err error) bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 15 * time.Second
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = 1
	}
	if c.RecordFailure == nil {
		c.RecordFailure = countsAsFailure
	}
	return c
}

// Guard runs calls to one dependency under a per-call timeout and a circuit
// breaker. Calls are never retried; callers see the first failure.
type Guard struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker[any]
}

func NewGuard(name string, cfg Config) *Guard {
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !cfg.RecordFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "dependency", name, "from", from.String(), "to", to.String())
		},
	}

	return &Guard{cfg: cfg, breaker: gobreaker.NewCircuitBreaker[any](settings)}
}

// countsAsFailure treats every error as a dependency failure except the
// caller giving up.
func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := g.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		return nil, fn(callCtx)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}

	return err
}

func (g *Guard) State() string {
	return g.breaker.State().String()
}
