package core

import (
	"context"
	"time"
)

// Timer is a scheduled callback that may still be stopped.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback has already fired or been stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay. Simulated latency and simulated
// replies go through it so tests can control time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules callbacks on the runtime timer.
var SystemScheduler Scheduler = systemScheduler{}

type immediateScheduler struct{}

type firedTimer struct{}

func (firedTimer) Stop() bool { return false }

func (immediateScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	f()
	return firedTimer{}
}

// ImmediateScheduler runs every callback synchronously, ignoring the delay.
var ImmediateScheduler Scheduler = immediateScheduler{}

// Sleep pauses for d using s. It returns ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, s Scheduler, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := s.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
