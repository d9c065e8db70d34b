// Package countdown schedules the once-per-interval ticks that drive the
// period machine. Ticks are derived from wall-clock time elapsed since the
// last start, so late callbacks catch up instead of drifting.
package countdown

import (
	"time"
)

// DefaultInterval is the length of one countdown tick.
const DefaultInterval = time.Second

// Scheduler tracks how many ticks are owed while running. It holds no timers
// of its own; callers ask NextDelay when to come back and pass the
// generation they were scheduled under to Due.
type Scheduler struct {
	now      func() time.Time
	interval time.Duration

	running bool
	gen     uint64
	anchor  time.Time
	fired   int
	// carry is the partial interval that had elapsed when the scheduler was
	// last stopped. It is credited back on the next Start.
	carry time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInterval sets the tick length.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// New returns a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{now: time.Now, interval: DefaultInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the tick length.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Running reports whether ticks are being counted.
func (s *Scheduler) Running() bool { return s.running }

// Generation identifies the current run. It changes on every Start and Stop.
func (s *Scheduler) Generation() uint64 { return s.gen }

// Start begins counting from now and returns the new generation. Starting
// an already running scheduler keeps its anchor.
func (s *Scheduler) Start() uint64 {
	if s.running {
		return s.gen
	}
	s.running = true
	s.gen++
	s.anchor = s.now().Add(-s.carry)
	s.fired = 0
	s.carry = 0
	return s.gen
}

// Stop halts counting and invalidates every outstanding generation. The
// partial interval elapsed so far is kept for the next Start.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	elapsed := s.now().Sub(s.anchor) - time.Duration(s.fired)*s.interval
	if elapsed < 0 {
		elapsed = 0
	}
	s.carry = elapsed % s.interval
	s.running = false
	s.gen++
}

// Reset stops the scheduler and discards any partial interval.
func (s *Scheduler) Reset() {
	s.Stop()
	s.carry = 0
}

// Due returns the number of ticks owed at now for a callback scheduled under
// gen, and marks them as fired. A stale generation is owed nothing.
func (s *Scheduler) Due(gen uint64, now time.Time) int {
	if !s.running || gen != s.gen {
		return 0
	}
	total := int(now.Sub(s.anchor) / s.interval)
	owed := total - s.fired
	if owed <= 0 {
		return 0
	}
	s.fired = total
	return owed
}

// NextDelay returns how long until the next tick boundary, or 0 when stopped
// or when a tick is already owed.
func (s *Scheduler) NextDelay(now time.Time) time.Duration {
	if !s.running {
		return 0
	}
	next := s.anchor.Add(time.Duration(s.fired+1) * s.interval)
	if d := next.Sub(now); d > 0 {
		return d
	}
	return 0
}
