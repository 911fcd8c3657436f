package observability

import (
	"sync"
	"testing"
	"time"
)

func TestPoolStats_Snapshot(t *testing.T) {
	s := NewPoolStats()

	var wg sync.WaitGroup
	for _, d := range []time.Duration{10 * time.Millisecond, 30 * time.Millisecond, 20 * time.Millisecond} {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			s.IncAdmitted()
			s.ObserveDuration(d)
		}(d)
	}
	wg.Wait()

	s.IncRejected()
	s.IncParseFailed()

	snap := s.Snapshot()
	if snap.Admitted != 3 || snap.Rejected != 1 || snap.ParseFailed != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.AverageDuration != 20*time.Millisecond {
		t.Fatalf("expected 20ms average, got %s", snap.AverageDuration)
	}
	if snap.MaxDuration != 30*time.Millisecond {
		t.Fatalf("expected 30ms max, got %s", snap.MaxDuration)
	}
}
