package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal state of a queued request's completion
// signal. Exactly one outcome is ever settled per WorkItem.
type Outcome int

const (
	// Pending means the signal has not yet settled.
	Pending Outcome = iota
	Done
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// Completion is a one-shot, at-most-once resolvable cell representing
// the terminal state of a queued request. It is writable from either
// side (the dispatcher, which resolves Done/Failed; the controller,
// which resolves TimedOut on its wait deadline) and readable, via
// Done and Result, from the controller goroutine only.
//
// The first call to Resolve wins; later calls are no-ops. This is
// what lets the dispatcher tolerate settling an already-timed-out
// item: the controller does not remove timed-out items from the
// queue, so the dispatcher will eventually run them anyway.
type Completion struct {
	mu       sync.Mutex
	settled  bool
	outcome  Outcome
	err      error
	notifyCh chan struct{}
}

// NewCompletion returns a fresh, unsettled Completion.
func NewCompletion() *Completion {
	return &Completion{notifyCh: make(chan struct{})}
}

// Resolve settles the completion with the given outcome and error
// (err is only meaningful for Failed). Returns true if this call is
// the one that settled it.
func (c *Completion) Resolve(outcome Outcome, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled {
		return false
	}
	c.settled = true
	c.outcome = outcome
	c.err = err
	close(c.notifyCh)
	return true
}

// Done returns a channel closed once the completion has settled.
func (c *Completion) Done() <-chan struct{} {
	return c.notifyCh
}

// Result returns the settled outcome and error. Must only be called
// after Done() has fired.
func (c *Completion) Result() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome, c.err
}

// WorkItem is an opaque deferred-invocation record: a downstream
// handler closure, its completion signal, and the timestamp at which
// it entered the wait queue. It exists only while a request is queued
// or executing; ownership of the response passes from the admission
// controller goroutine to the dispatcher goroutine at enqueue time and
// back only if the controller's deadline fires first.
type WorkItem struct {
	ID         uuid.UUID
	Run        func()
	Completion *Completion
	EnqueuedAt time.Time
}

// NewWorkItem builds a WorkItem wrapping run, ready to be handed to a
// WaitQueue. run has no error return because it is, in practice, a
// closure over an http.Handler.ServeHTTP call: a failed run signals
// failure by panicking, which the dispatcher recovers (see
// application.Dispatcher.launch and application.Controller.wrapExecution).
func NewWorkItem(run func()) *WorkItem {
	return &WorkItem{
		ID:         uuid.New(),
		Run:        run,
		Completion: NewCompletion(),
		EnqueuedAt: time.Now(),
	}
}
