package domain

import "context"

// PermitPool is a counted semaphore limiting the number of downstream
// handlers executing concurrently.
//
// Acquire blocks until a permit is available or ctx is done. On
// success it returns a release func that must be called exactly once,
// on every exit path (success, panic, or error), to return the
// permit. Acquire must never leak a permit: a false ok means no
// release call is needed.
type PermitPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	InFlight() int
	Capacity() int
}
