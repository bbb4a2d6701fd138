// Package poll drives asynchronous long-running operations to completion
// within a bounded number of attempts.
package poll

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var ErrTimedOut = goerr.New("operation did not complete in time")

const (
	defaultInterval    = 10 * time.Second
	defaultMaxAttempts = 30
)

var defaultMessages = []string{
	"Warming up the model...",
	"Generating your content...",
	"Still working on it...",
	"Rendering frames...",
	"Almost there...",
	"Polishing the result...",
}

type config struct {
	interval    time.Duration
	maxAttempts int
	messages    []string
	onProgress  func(string)
}

type Option func(*config)

// WithInterval overrides the wait between attempts
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithMaxAttempts overrides the attempt bound
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithMessages replaces the rotating progress messages
func WithMessages(messages []string) Option {
	return func(c *config) {
		if len(messages) > 0 {
			c.messages = messages
		}
	}
}

// WithProgress registers a callback invoked with the next progress message
// before each poll attempt
func WithProgress(fn func(string)) Option {
	return func(c *config) {
		c.onProgress = fn
	}
}

// Until polls an operation until done reports completion. Each attempt waits
// the poll interval, advances the rotating progress message, then calls step
// to refresh the operation. A step failure is treated as transient and does
// not abort the loop; only exhausting the attempt bound does, with
// ErrTimedOut. The default bound is 30 attempts at 10 second intervals.
func Until[T any](ctx context.Context, op T, step func(context.Context, T) (T, error), done func(T) bool, opts ...Option) (T, error) {
	cfg := &config{
		interval:    defaultInterval,
		maxAttempts: defaultMaxAttempts,
		messages:    defaultMessages,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if done(op) {
		return op, nil
	}

	var zero T
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, goerr.Wrap(ctx.Err(), "polling cancelled")
		case <-time.After(cfg.interval):
		}

		if cfg.onProgress != nil {
			cfg.onProgress(cfg.messages[attempt%len(cfg.messages)])
		}

		next, err := step(ctx, op)
		if err != nil {
			// transient; keep the last known operation state
			continue
		}
		op = next

		if done(op) {
			return op, nil
		}
	}

	return zero, goerr.Wrap(ErrTimedOut, "gave up polling", goerr.V("attempts", cfg.maxAttempts))
}
