package domain

import "errors"

// ErrQueueClosed is returned by Dequeue once Close has been called and
// the queue has drained.
var ErrQueueClosed = errors.New("admission: wait queue closed")

// WaitQueue is a bounded FIFO of WorkItem. Implementations must
// satisfy: size never exceeds the configured capacity; enqueue is
// totally ordered; dequeue yields items in enqueue order; Size is a
// cheap, non-blocking observation usable for admission decisions.
type WaitQueue interface {
	// Size returns the current queue length without blocking.
	Size() int
	// Capacity returns the configured maximum size.
	Capacity() int
	// Enqueue appends item. Callers must have already observed
	// Size() < Capacity(); if the queue fills in the race window
	// between that observation and this call, Enqueue blocks briefly
	// rather than reject.
	Enqueue(item *WorkItem) error
	// Dequeue blocks until an item is available or the queue is
	// closed, in which case it returns ErrQueueClosed.
	Dequeue() (*WorkItem, error)
	// Close permits a blocked Dequeue to return ErrQueueClosed. Used
	// only at shutdown.
	Close()
}
