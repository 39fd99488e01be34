package infra

import (
	"errors"
	"testing"

	"admission-gateway/middleware/admission/domain"
)

func TestWaitQueue_FIFOOrder(t *testing.T) {
	q := NewWaitQueue(4)

	a := domain.NewWorkItem(func() {})
	b := domain.NewWorkItem(func() {})
	c := domain.NewWorkItem(func() {})

	for _, item := range []*domain.WorkItem{a, b, c} {
		if err := q.Enqueue(item); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}
	if q.Size() != 3 {
		t.Fatalf("expected size 3, got %d", q.Size())
	}

	for _, want := range []*domain.WorkItem{a, b, c} {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("unexpected dequeue error: %v", err)
		}
		if got.ID != want.ID {
			t.Fatalf("expected FIFO order, got %s want %s", got.ID, want.ID)
		}
	}
}

func TestWaitQueue_EnqueueAfterCloseFails(t *testing.T) {
	q := NewWaitQueue(1)
	q.Close()

	err := q.Enqueue(domain.NewWorkItem(func() {}))
	if !errors.Is(err, domain.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestWaitQueue_DequeueDrainsBufferedItemsBeforeReportingClosed(t *testing.T) {
	q := NewWaitQueue(2)

	item := domain.NewWorkItem(func() {})
	if err := q.Enqueue(item); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	q.Close()

	got, err := q.Dequeue()
	if err != nil {
		t.Fatalf("expected the buffered item to still be delivered, got err=%v", err)
	}
	if got.ID != item.ID {
		t.Fatalf("expected the buffered item back")
	}

	_, err = q.Dequeue()
	if !errors.Is(err, domain.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed once drained, got %v", err)
	}
}

func TestWaitQueue_CapacityClampedToAtLeastOne(t *testing.T) {
	q := NewWaitQueue(0)
	if q.Capacity() != 1 {
		t.Fatalf("expected capacity clamped to 1, got %d", q.Capacity())
	}
}
