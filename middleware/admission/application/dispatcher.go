package application

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Dispatcher is the long-lived background loop that drains the wait
// queue and launches each item's execution on a fresh goroutine so a
// slow handler never stalls the dequeue loop.
//
// It tolerates dequeuing an item whose completion has already settled
// (the controller resolved it TimedOut while it was still queued):
// the item still runs to completion under a permit, to preserve
// concurrency accounting, and its own attempt to resolve the
// completion is silently dropped by Completion.Resolve's
// at-most-once semantics.
type Dispatcher struct {
	Queue  domain.WaitQueue
	Logger domain.Logger

	wg sync.WaitGroup
}

func (d *Dispatcher) logger() domain.Logger {
	if d.Logger == nil {
		return domain.NopLogger{}
	}
	return d.Logger
}

// Run drains the queue until it is closed. Intended to be launched
// once, in its own goroutine, at controller construction.
func (d *Dispatcher) Run() {
	for {
		item, err := d.Queue.Dequeue()
		if err != nil {
			if errors.Is(err, domain.ErrQueueClosed) {
				return
			}
			d.logger().Printf("admission: dispatcher dequeue error: %v", err)
			return
		}

		wait := time.Since(item.EnqueuedAt)
		d.logger().Printf("admission: dispatching item=%s waited=%s", item.ID, wait)

		d.wg.Add(1)
		go d.launch(item)
	}
}

// launch runs one item's wrapped execution, guarding against the item
// itself panicking before permit acquisition: if that happens the
// dispatcher settles the completion as failed itself, so a waiting
// controller goroutine is never left blocked forever.
func (d *Dispatcher) launch(item *domain.WorkItem) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			item.Completion.Resolve(domain.Failed, fmt.Errorf("admission: dispatcher recovered: %v", r))
		}
	}()
	item.Run()
}

// Drain blocks until every goroutine launched by Run has returned.
// Used at shutdown after the queue has been closed and Run has
// exited, to join in-flight dispatched work before disposing probes.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}
