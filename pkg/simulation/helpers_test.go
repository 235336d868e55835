package simulation

import (
	"sync"
	"time"

	"github.com/picogrid/railops-sim/pkg/logger"
)

// fakeScheduler records completions and fires them only when asked
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{delay: d, fn: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() bool {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()

	t.fn()
	return true
}

// fireAll fires every live timer in scheduling order and returns how many fired
func (s *fakeScheduler) fireAll() int {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()

	n := 0
	for _, t := range timers {
		if t.fire() {
			n++
		}
	}
	return n
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fixedRand returns lowest or highest value of every range
type fixedRand struct{ high bool }

func (r fixedRand) Intn(n int) int {
	if r.high {
		return n - 1
	}
	return 0
}

func newTestController(opts ...Option) (*Controller, *fakeScheduler) {
	sched := &fakeScheduler{}
	base := []Option{
		WithScheduler(sched),
		WithRandSource(NewRandSource(42)),
		WithLogger(logger.Discard()),
	}
	return NewController(append(base, opts...)...), sched
}
