package sim

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/sirupsen/logrus"
)

// Pacer spaces requests to follow a recorded schedule. It waits for the gap
// between consecutive schedule timestamps; the first call never waits.
type Pacer struct {
	clock   clock.Clock
	last    int64
	started bool
}

// NewPacer creates a Pacer on the given clock.
func NewPacer(c clock.Clock) *Pacer {
	return &Pacer{clock: c}
}

// Wait blocks for tsMs minus the previous timestamp, in milliseconds, and
// returns the delay it waited. Cancelling ctx interrupts the wait.
func (p *Pacer) Wait(ctx context.Context, tsMs int64) (time.Duration, error) {
	var delay time.Duration
	if p.started {
		delay = time.Duration(tsMs-p.last) * time.Millisecond
	}
	p.last, p.started = tsMs, true

	if delay < 0 {
		logrus.Debugf("pacer: schedule went back %v, not waiting", -delay)
		return 0, nil
	}
	if delay == 0 {
		return 0, nil
	}

	timer := p.clock.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C():
		return delay, nil
	}
}
