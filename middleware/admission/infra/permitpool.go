package infra

import (
	"context"
	"sync/atomic"

	"admission-gateway/middleware/admission/domain"
)

// permitPool is a channel-backed counted semaphore. Acquire is
// cancellable via ctx. The controller passes the request's context
// only on the direct path, so a client that disconnects there stops
// waiting for a permit; queued work acquires with a background
// context and keeps waiting for a permit after a disconnect.
type permitPool struct {
	sem      chan struct{}
	inFlight int64
	capacity int
}

// NewPermitPool creates a PermitPool with the given maximum
// concurrency. capacity must be >= 1.
func NewPermitPool(capacity int) domain.PermitPool {
	if capacity < 1 {
		capacity = 1
	}
	return &permitPool{sem: make(chan struct{}, capacity), capacity: capacity}
}

func (p *permitPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		atomic.AddInt64(&p.inFlight, 1)
		released := false
		return func() {
			if released {
				return
			}
			released = true
			atomic.AddInt64(&p.inFlight, -1)
			<-p.sem
		}, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *permitPool) InFlight() int { return int(atomic.LoadInt64(&p.inFlight)) }
func (p *permitPool) Capacity() int { return p.capacity }
