// Package worker contains the background expiry reaper. It periodically
// reclaims seats from lapsed reservations so they become bookable again
// without any user action.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper is the slice of the registration service the reaper needs.
type Sweeper interface {
	SweepExpiredHolds(ctx context.Context) (int, error)
	SweepPaymentDeadlines(ctx context.Context) (int, error)
}

// Reaper runs the two independent sweep rules on a fixed interval: the
// short hold-expiry sweep (reserved rows past reserved_until) and the
// long payment-deadline sweep (live rows past payment_deadline without
// admin verification). Sweeps run concurrently with live reservation
// traffic; per-registration atomicity is handled by the store, so the
// reaper itself is just a ticker loop.
type Reaper struct {
	svc      Sweeper
	interval time.Duration
}

// NewReaper builds a reaper sweeping every interval.
func NewReaper(svc Sweeper, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{svc: svc, interval: interval}
}

// Start blocks running sweep passes until ctx is cancelled. Run it in a
// goroutine. A failed pass is logged and the loop keeps going; the next
// tick retries naturally since expired rows stay expired.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logrus.WithField("interval", r.interval).Info("expiry reaper started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("expiry reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	if n, err := r.svc.SweepExpiredHolds(ctx); err != nil {
		logrus.WithError(err).Error("hold expiry sweep failed")
	} else if n > 0 {
		logrus.WithField("reclaimed", n).Info("hold expiry sweep reclaimed seats")
	}

	if n, err := r.svc.SweepPaymentDeadlines(ctx); err != nil {
		logrus.WithError(err).Error("payment deadline sweep failed")
	} else if n > 0 {
		logrus.WithField("reclaimed", n).Info("payment deadline sweep reclaimed seats")
	}
}
