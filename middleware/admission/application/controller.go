package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// ErrPoolClosed is returned when a permit could not be acquired
// because the pool (or the calling context) was closed/cancelled.
var ErrPoolClosed = errors.New("admission: permit pool closed or acquisition cancelled")

// Config carries the admission thresholds and sizing values. Values
// are expected to already be validated/clamped by the caller (the
// top-level admission package does this at construction).
type Config struct {
	CPUThreshold        int
	MemoryThreshold     int
	UseMemoryMonitoring bool
	MaxWait             time.Duration
}

// Controller is the admission decision use case: it holds no
// net/http types and returns plain domain values, so it can be unit
// tested against stub probes/pools/queues.
type Controller struct {
	Config

	CPU    domain.CpuProbe
	Memory domain.MemoryProbe
	Pool   domain.PermitPool
	Queue  domain.WaitQueue
	Stats  domain.StatsStore
	Logger domain.Logger
}

func (c *Controller) logger() domain.Logger {
	if c.Logger == nil {
		return domain.NopLogger{}
	}
	return c.Logger
}

// Evaluate checks CPU first; memory is only consulted if CPU is
// under threshold and memory monitoring is enabled.
func (c *Controller) Evaluate() domain.Decision {
	cpu := 0
	if c.CPU != nil {
		cpu = c.CPU.CurrentPercent()
	}
	if cpu >= c.CPUThreshold {
		return domain.Decision{OverThreshold: true, Reason: domain.ReasonCPU, CPU: cpu}
	}

	mem := 0
	if c.UseMemoryMonitoring && c.Memory != nil {
		mem = c.Memory.CurrentPercent()
		if mem >= c.MemoryThreshold {
			return domain.Decision{OverThreshold: true, Reason: domain.ReasonMemory, CPU: cpu, Memory: mem}
		}
	}

	return domain.Decision{OverThreshold: false, Reason: domain.ReasonNone, CPU: cpu, Memory: mem}
}

// RunDirect is the under-threshold path: acquire a permit, run next,
// release on every exit including panic.
//
// next has no error return because it is, in practice, an
// http.Handler.ServeHTTP call: a Go handler signals a fatal error by
// panicking, not by returning one, so RunDirect lets a panic from
// next propagate straight through (the deferred release still runs)
// rather than trying to translate it. Any recover middleware wrapping
// the caller sees the panic exactly as it would from a direct call.
func (c *Controller) RunDirect(ctx context.Context, next func()) error {
	release, ok := c.Pool.Acquire(ctx)
	if !ok {
		return ErrPoolClosed
	}
	defer release()
	next()
	return nil
}

// ReserveSlot checks the queue for room and, if there is any, builds
// the WorkItem that will eventually run next but does not hand it to
// the queue yet. Callers that need to touch shared state the
// dispatcher might also touch (the request's ResponseWriter, most
// notably) must do so between ReserveSlot and Enqueue: nothing about
// item is visible to the dispatcher until Enqueue is called, so
// there's no goroutine to race yet. It returns ok=false if the queue
// was observed full, in which case the caller should reject rather
// than enqueue.
func (c *Controller) ReserveSlot(next func()) (*domain.WorkItem, bool) {
	if c.Queue.Size() >= c.Queue.Capacity() {
		return nil, false
	}

	item := domain.NewWorkItem(nil)
	item.Run = c.wrapExecution(item, next)
	return item, true
}

// Enqueue hands item to the queue, making it visible to the
// dispatcher for the first time. It returns false only if the queue
// has since been closed.
func (c *Controller) Enqueue(item *domain.WorkItem) bool {
	return c.Queue.Enqueue(item) == nil
}

// wrapExecution builds the deferred-invocation closure a WorkItem
// carries into the queue: acquire a permit, run next, resolve the
// completion, release the permit on every exit path.
//
// Here, unlike RunDirect, a panic from next IS recovered: this
// closure runs on a goroutine the dispatcher owns, invisible to
// whatever recover middleware wraps the original request's
// goroutine. Recovering here, resolving Failed, and letting the
// waiting controller re-panic with the same error (see the
// middleware adapter) moves the panic back onto the goroutine the
// host's own middleware chain is actually watching.
func (c *Controller) wrapExecution(item *domain.WorkItem, next func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				item.Completion.Resolve(domain.Failed, fmt.Errorf("admission: handler panic: %v", r))
			}
		}()

		release, ok := c.Pool.Acquire(context.Background())
		if !ok {
			item.Completion.Resolve(domain.Failed, ErrPoolClosed)
			return
		}
		defer release()

		next()
		item.Completion.Resolve(domain.Done, nil)
	}
}

// AwaitCompletion waits on item's completion signal with the
// configured deadline. A deadline <= 0 waits indefinitely. If the
// deadline fires first, the completion is atomically transitioned to
// TimedOut and the item is left in the queue for the dispatcher to
// eventually run under a permit anyway: removing an item from the
// middle of the queue would cost O(n), while leaving it costs nothing
// but a discarded result.
func (c *Controller) AwaitCompletion(item *domain.WorkItem, deadline time.Duration) (domain.Outcome, error) {
	if deadline <= 0 {
		<-item.Completion.Done()
		return item.Completion.Result()
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-item.Completion.Done():
		return item.Completion.Result()
	case <-timer.C:
		if !item.Completion.Resolve(domain.TimedOut, nil) {
			// The dispatcher settled the completion just before the
			// deadline was acted on; its outcome stands.
			return item.Completion.Result()
		}
		c.logger().Printf("admission: item=%s timed out after %s in queue", item.ID, deadline)
		return domain.TimedOut, nil
	}
}
