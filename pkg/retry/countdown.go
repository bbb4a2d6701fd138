// Package retry provides the countdown that gates generation retries after
// a rate-limited request, at one-second resolution.
package retry

import (
	"sync"
	"time"
)

// Countdown runs a single backoff countdown for one tool session. Arming it
// while a previous countdown is live cancels the old one first, so at most
// one timer is ever running.
type Countdown struct {
	mu         sync.Mutex
	interval   time.Duration
	generation int
	remaining  int
	stop       chan struct{}
}

type Option func(*Countdown)

// WithInterval overrides the tick interval. Intended for tests.
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		c.interval = d
	}
}

func New(opts ...Option) *Countdown {
	c := &Countdown{
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Arm starts a countdown of the given number of seconds. onTick receives the
// remaining seconds after each tick (delay, delay-1, ..., 1); onExpire fires
// exactly once when the countdown reaches zero. A non-positive delay expires
// immediately without ticking.
func (c *Countdown) Arm(delaySec int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	c.cancelLocked()

	if delaySec <= 0 {
		c.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		return
	}

	c.generation++
	gen := c.generation
	c.remaining = delaySec
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(gen, stop, onTick, onExpire)
}

func (c *Countdown) run(gen int, stop chan struct{}, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		remaining := c.remaining
		c.remaining--
		expired := c.remaining <= 0
		if expired {
			c.stop = nil
		}
		c.mu.Unlock()

		if onTick != nil {
			onTick(remaining)
		}
		if expired {
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

// Cancel stops any running countdown. Safe to call when none is active.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Countdown) cancelLocked() {
	c.generation++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.remaining = 0
}

// Active reports whether a countdown is currently running. While active the
// owning session must reject new generation requests.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Remaining returns the seconds left in the current countdown, zero when idle
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return 0
	}
	return c.remaining
}
