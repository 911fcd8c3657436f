package observability

import (
	"sync/atomic"
	"time"
)

// PoolStats is an in-process tally of extraction pool activity, reported on /readyz.
type PoolStats struct {
	admitted      atomic.Uint64
	rejected      atomic.Uint64
	succeeded     atomic.Uint64
	processFailed atomic.Uint64
	parseFailed   atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewPoolStats() *PoolStats {
	return &PoolStats{}
}

func (m *PoolStats) IncAdmitted() {
	m.admitted.Add(1)
}

func (m *PoolStats) IncRejected() {
	m.rejected.Add(1)
}

func (m *PoolStats) IncSucceeded() {
	m.succeeded.Add(1)
}

func (m *PoolStats) IncProcessFailed() {
	m.processFailed.Add(1)
}

func (m *PoolStats) IncParseFailed() {
	m.parseFailed.Add(1)
}

func (m *PoolStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type PoolStatsSnapshot struct {
	Admitted        uint64        `json:"admitted"`
	Rejected        uint64        `json:"rejected"`
	Succeeded       uint64        `json:"succeeded"`
	ProcessFailed   uint64        `json:"processFailed"`
	ParseFailed     uint64        `json:"parseFailed"`
	DurationCount   uint64        `json:"durationCount"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *PoolStats) Snapshot() PoolStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return PoolStatsSnapshot{
		Admitted:        m.admitted.Load(),
		Rejected:        m.rejected.Load(),
		Succeeded:       m.succeeded.Load(),
		ProcessFailed:   m.processFailed.Load(),
		ParseFailed:     m.parseFailed.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
