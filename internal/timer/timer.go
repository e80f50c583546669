// Package timer runs the per-question countdowns of live sessions.
package timer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultGrace = 700 * time.Millisecond
	tick         = time.Second
)

type Config struct {
	Clock clockwork.Clock
	// Grace is the delay between the final 0-tick and the expiry, so that submissions
	// racing the end of the countdown can still land.
	Grace time.Duration
}

// Scheduler creates countdowns. It keeps no registry: each countdown is owned by whoever
// armed it and must be stopped by its owner before arming a replacement.
type Scheduler struct {
	clock clockwork.Clock
	grace time.Duration
}

func NewScheduler(c Config) *Scheduler {
	s := &Scheduler{
		clock: c.Clock,
		grace: c.Grace,
	}

	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}

	if s.grace <= 0 {
		s.grace = DefaultGrace
	}

	return s
}

// Callbacks of a countdown. They are called from the countdown goroutine, one at a time.
type Callbacks struct {
	// OnTick receives the remaining seconds once per elapsed second, down to 0.
	OnTick func(c *Countdown, remaining int)
	// OnExpire is called once, a grace interval after the 0-tick.
	OnExpire func(c *Countdown)
}

// Countdown is a running countdown handle.
type Countdown struct {
	seconds   int
	stopped   atomic.Bool
	remaining atomic.Int64
	stop      chan struct{}
	once      sync.Once
}

// Arm starts a countdown of the given seconds.
func (s *Scheduler) Arm(seconds int, cb Callbacks) (*Countdown, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("timer: invalid duration %ds", seconds)
	}

	c := &Countdown{
		seconds: seconds,
		stop:    make(chan struct{}),
	}
	c.remaining.Store(int64(seconds))

	go s.run(c, cb)

	return c, nil
}

func (s *Scheduler) run(c *Countdown, cb Callbacks) {
	for remaining := c.seconds - 1; remaining >= 0; remaining-- {
		if !s.wait(c, tick) {
			return
		}

		c.remaining.Store(int64(remaining))
		if cb.OnTick != nil {
			cb.OnTick(c, remaining)
		}
	}

	if !s.wait(c, s.grace) {
		return
	}

	c.stopped.Store(true)
	if cb.OnExpire != nil {
		cb.OnExpire(c)
	}
}

// wait blocks for d and reports whether the countdown is still live afterwards.
func (s *Scheduler) wait(c *Countdown, d time.Duration) bool {
	t := s.clock.NewTimer(d)
	select {
	case <-t.Chan():
		return !c.stopped.Load()
	case <-c.stop:
		t.Stop()
		return false
	}
}

// Stop cancels the countdown: no further tick or expiry is scheduled. A callback that was
// already running when Stop was called may still complete, so owners compare the handle
// passed to the callback with the one they hold. Stop is safe to call several times.
func (c *Countdown) Stop() {
	if c == nil {
		return
	}

	c.once.Do(func() {
		c.stopped.Store(true)
		close(c.stop)
	})
}

// Seconds is the armed duration.
func (c *Countdown) Seconds() int {
	return c.seconds
}

// Remaining is the last value reported to OnTick, or the armed duration before the first tick.
func (c *Countdown) Remaining() int {
	return int(c.remaining.Load())
}
