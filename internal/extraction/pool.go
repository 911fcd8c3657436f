package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/document"
	"github.com/geocoder89/taxdesk/internal/observability"
	"golang.org/x/sync/semaphore"
)

type PoolConfig struct {
	Concurrency  int
	TaskTimeout  time.Duration
	QueueTimeout time.Duration
}

// Pool caps how many extractor processes run at once. A caller waits at most
// QueueTimeout for a slot and each process gets at most TaskTimeout.
type Pool struct {
	sem    *semaphore.Weighted
	runner Runner
	cfg    PoolConfig

	stats *observability.PoolStats
	prom  *observability.Prom
	log   *slog.Logger
}

func NewPool(runner Runner, cfg PoolConfig, stats *observability.PoolStats, prom *observability.Prom, log *slog.Logger) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 10 * time.Second
	}
	if stats == nil {
		stats = observability.NewPoolStats()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pool{
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		runner: runner,
		cfg:    cfg,
		stats:  stats,
		prom:   prom,
		log:    log,
	}
}

func (p *Pool) Stats() observability.PoolStatsSnapshot {
	return p.stats.Snapshot()
}

// Extract runs the pipeline for t over stdin and parses the result.
func (p *Pool) Extract(ctx context.Context, pl Pipeline, t document.Type, stdin io.Reader) (document.Payload, error) {
	if err := p.acquire(ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			p.stats.IncRejected()
			p.observe(pl.Name, "busy", 0)
		}
		return nil, err
	}
	defer p.sem.Release(1)

	p.stats.IncAdmitted()
	if p.prom != nil {
		p.prom.ExtractionInFlight.Inc()
		defer p.prom.ExtractionInFlight.Dec()
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	stdout, err := p.runner.Run(taskCtx, pl.CommandFor(t), stdin)
	if err == nil {
		var payload document.Payload
		payload, err = ParseOutput(stdout, t, pl.Aliases)
		if err == nil {
			elapsed := time.Since(start)
			p.stats.IncSucceeded()
			p.stats.ObserveDuration(elapsed)
			p.observe(pl.Name, "ok", elapsed)
			return payload, nil
		}
	}

	elapsed := time.Since(start)
	p.stats.ObserveDuration(elapsed)

	switch {
	case errors.Is(err, ErrParseFailure):
		p.stats.IncParseFailed()
		p.observe(pl.Name, "parse_failed", elapsed)
	case errors.Is(err, ErrProcessFailure):
		p.stats.IncProcessFailed()
		p.observe(pl.Name, "process_failed", elapsed)
	default:
		err = fmt.Errorf("%w: %v", ErrProcessFailure, err)
		p.stats.IncProcessFailed()
		p.observe(pl.Name, "process_failed", elapsed)
	}

	p.log.WarnContext(ctx, "extraction failed",
		"pipeline", pl.Name,
		"document_type", string(t),
		"duration_ms", elapsed.Milliseconds(),
		"err", err,
	)

	return nil, err
}

func (p *Pool) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.QueueTimeout)
	defer cancel()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		// the caller went away; that is not saturation
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy
	}
	return nil
}

func (p *Pool) observe(pipeline, result string, d time.Duration) {
	if p.prom != nil {
		p.prom.ObserveExtraction(pipeline, result, d)
	}
}
