// Package usecase holds the per-session state shared by every tool:
// the in-flight gate, the retry countdown and the credential flag. Each tool
// session owns one Gate; all mutable state lives there rather than in
// package globals so concurrent sessions never interfere.
package usecase

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"genstudio/pkg/apierr"
	"genstudio/pkg/retry"
)

var (
	ErrBusy         = goerr.New("a generation is already in flight")
	ErrRetryPending = goerr.New("waiting for the retry countdown")
	ErrNoCredential = goerr.New("credential must be re-selected")
)

// Failure wraps a classified outcome as an error so tool boundaries never
// leak raw API failures
type Failure struct {
	Outcome apierr.Outcome
}

func (f *Failure) Error() string {
	return f.Outcome.Message
}

// Gate serializes submissions for one tool session. A new generation is
// rejected while a prior one is in flight or while the retry countdown is
// active.
type Gate struct {
	mu             sync.Mutex
	loading        bool
	needCredential bool
	countdown      *retry.Countdown
}

func NewGate(opts ...retry.Option) *Gate {
	return &Gate{
		countdown: retry.New(opts...),
	}
}

// Begin claims the gate for a new submission
func (g *Gate) Begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.loading {
		return goerr.Wrap(ErrBusy, "submission rejected")
	}
	if g.countdown.Active() {
		return goerr.Wrap(ErrRetryPending, "submission rejected", goerr.V("remaining", g.countdown.Remaining()))
	}
	if g.needCredential {
		return goerr.Wrap(ErrNoCredential, "submission rejected")
	}

	g.loading = true
	return nil
}

// End releases the gate. Must run on every exit path of a submission.
func (g *Gate) End() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading = false
}

// Loading reports whether a submission is in flight
func (g *Gate) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

// Countdown exposes the session countdown for UI display
func (g *Gate) Countdown() *retry.Countdown {
	return g.countdown
}

// HandleFailure classifies a remote failure, arms the countdown when the
// outcome carries a retry delay, and records a credential reset when
// demanded. The returned Failure is what the tool surfaces to its caller.
func (g *Gate) HandleFailure(err error, onTick func(remaining int), onExpire func()) *Failure {
	outcome := apierr.Classify(err)

	if outcome.Retryable() {
		g.countdown.Arm(outcome.RetryDelaySec, onTick, onExpire)
	}
	if outcome.ResetCredential {
		g.mu.Lock()
		g.needCredential = true
		g.mu.Unlock()
	}

	return &Failure{Outcome: outcome}
}

// NeedsCredential reports whether a credential must be re-selected before
// the next submission
func (g *Gate) NeedsCredential() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.needCredential
}

// CredentialSelected clears the credential flag after the user picked a new
// credential
func (g *Gate) CredentialSelected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.needCredential = false
}

// Close cancels any running countdown. Call on session teardown.
func (g *Gate) Close() {
	g.countdown.Cancel()
}
