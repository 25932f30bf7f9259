package reload

import (
	"sync"
	"time"
)

// Scheduler abstracts the one-shot timer between poll cycles.
type Scheduler interface {
	After(d time.Duration) <-chan time.Time
}

type realScheduler struct{}

func (realScheduler) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealScheduler returns a Scheduler backed by time.After.
func RealScheduler() Scheduler { return realScheduler{} }

// ManualScheduler fires timers only when Advance is called. It lets
// tests run an exact number of cycles without wall-clock sleeps.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	pending []manualTimer
	waiters []chan struct{}
}

type manualTimer struct {
	at time.Time
	ch chan time.Time
}

// NewManualScheduler creates a ManualScheduler starting at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// After registers a timer that fires once the clock passes now+d.
func (m *ManualScheduler) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	m.pending = append(m.pending, manualTimer{at: m.now.Add(d), ch: ch})
	for _, w := range m.waiters {
		close(w)
	}
	m.waiters = nil
	return ch
}

// WaitPending returns a channel closed once at least one timer is pending.
func (m *ManualScheduler) WaitPending() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan struct{})
	if len(m.pending) > 0 {
		close(ch)
		return ch
	}
	m.waiters = append(m.waiters, ch)
	return ch
}

// Advance moves the clock forward and fires every timer that became due.
// It returns the number of timers fired.
func (m *ManualScheduler) Advance(d time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	fired := 0
	kept := m.pending[:0]
	for _, t := range m.pending {
		if t.at.After(m.now) {
			kept = append(kept, t)
			continue
		}
		t.ch <- m.now
		fired++
	}
	m.pending = kept
	return fired
}

// Now returns the scheduler's current time.
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
