package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	holds     atomic.Int32
	deadlines atomic.Int32
}

func (c *countingSweeper) SweepExpiredHolds(context.Context) (int, error) {
	c.holds.Add(1)
	return 0, nil
}

func (c *countingSweeper) SweepPaymentDeadlines(context.Context) (int, error) {
	c.deadlines.Add(1)
	return 0, nil
}

func TestReaperRunsBothSweeps(t *testing.T) {
	sw := &countingSweeper{}
	r := NewReaper(sw, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sw.holds.Load() < 2 || sw.deadlines.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeps did not run: holds=%d deadlines=%d", sw.holds.Load(), sw.deadlines.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on context cancel")
	}
}

func TestNewReaperDefaultsInterval(t *testing.T) {
	r := NewReaper(&countingSweeper{}, 0)
	if r.interval != time.Minute {
		t.Fatalf("interval = %v, want 1m", r.interval)
	}
}
