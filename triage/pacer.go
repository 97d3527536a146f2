package triage

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer sleeps a uniformly random duration in [Min, Max] between mutating
// calls so the account does not get throttled. The zero Pacer never sleeps.
type Pacer struct {
	Min time.Duration
	Max time.Duration
}

// Delay draws the next delay.
func (p Pacer) Delay() time.Duration {
	if p.Max <= 0 {
		return max(p.Min, 0)
	}
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + rand.N(p.Max-p.Min+1)
}

// Wait sleeps for Delay or until ctx is done.
func (p Pacer) Wait(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
