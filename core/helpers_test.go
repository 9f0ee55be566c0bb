package core

import (
	"sync"
	"time"
)

// fakeRandom replays scripted values. Once a script runs out Float64
// returns 0.5 and IntN returns zero.
type fakeRandom struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

func (r *fakeRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return 0.5
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *fakeRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return i % n
}

// manualScheduler holds callbacks until the test runs them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// delays returns the delays of callbacks that have neither fired nor been stopped.
func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var d []time.Duration
	for _, t := range s.pending {
		if !t.stopped {
			d = append(d, t.delay)
		}
	}
	return d
}

// fire runs every pending callback in scheduling order.
func (s *manualScheduler) fire() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	var run []func()
	for _, t := range pending {
		if !t.stopped {
			t.stopped = true
			run = append(run, t.f)
		}
	}
	s.mu.Unlock()
	for _, f := range run {
		f()
	}
}
