package infra

import (
	"context"
	"testing"
	"time"
)

func TestPermitPool_AcquireRelease_TracksInFlight(t *testing.T) {
	pool := NewPermitPool(2)

	release1, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if pool.InFlight() != 1 {
		t.Fatalf("expected InFlight=1, got %d", pool.InFlight())
	}

	release2, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected second acquire to succeed")
	}
	if pool.InFlight() != 2 {
		t.Fatalf("expected InFlight=2, got %d", pool.InFlight())
	}

	release1()
	if pool.InFlight() != 1 {
		t.Fatalf("expected InFlight=1 after release, got %d", pool.InFlight())
	}
	release2()
	if pool.InFlight() != 0 {
		t.Fatalf("expected InFlight=0 after release, got %d", pool.InFlight())
	}
}

func TestPermitPool_AcquireBlocksAtCapacity_UntilCancelled(t *testing.T) {
	pool := NewPermitPool(1)

	release, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, ok := pool.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail once the pool is full and ctx expires")
	}
}

func TestPermitPool_ReleaseIsIdempotent(t *testing.T) {
	pool := NewPermitPool(1)

	release, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected acquire to succeed")
	}
	release()
	release()

	if pool.InFlight() != 0 {
		t.Fatalf("expected InFlight=0, got %d", pool.InFlight())
	}

	// A double release must not have leaked an extra slot into the
	// semaphore: capacity 1 should still admit only one holder at a time.
	r1, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected acquire to succeed")
	}
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	if _, ok := pool.Acquire(ctx); ok {
		t.Fatalf("expected pool to still behave as capacity 1")
	}
}

func TestPermitPool_Capacity(t *testing.T) {
	pool := NewPermitPool(5)
	if pool.Capacity() != 5 {
		t.Fatalf("expected capacity 5, got %d", pool.Capacity())
	}
}
