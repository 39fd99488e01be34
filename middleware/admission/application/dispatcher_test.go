package application

import (
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

func TestDispatcher_RunDispatchesEnqueuedItems(t *testing.T) {
	queue := infra.NewWaitQueue(4)
	d := &Dispatcher{Queue: queue}
	go d.Run()

	ranCh := make(chan struct{})
	item := domain.NewWorkItem(func() { close(ranCh) })
	if err := queue.Enqueue(item); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	select {
	case <-ranCh:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for dispatcher to run the item")
	}

	queue.Close()
	d.Drain()
}

func TestDispatcher_RecoversPanicBeforePermitAcquisition(t *testing.T) {
	queue := infra.NewWaitQueue(4)
	d := &Dispatcher{Queue: queue}
	go d.Run()

	item := domain.NewWorkItem(func() { panic("boom") })
	if err := queue.Enqueue(item); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	select {
	case <-item.Completion.Done():
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for completion")
	}

	outcome, err := item.Completion.Result()
	if outcome != domain.Failed {
		t.Fatalf("expected Failed, got %s", outcome)
	}
	if err == nil {
		t.Fatalf("expected a non-nil error")
	}

	queue.Close()
	d.Drain()
}

func TestDispatcher_ToleratesAlreadyTimedOutItem(t *testing.T) {
	queue := infra.NewWaitQueue(4)
	d := &Dispatcher{Queue: queue}
	go d.Run()

	ranCh := make(chan struct{})
	item := domain.NewWorkItem(func() { close(ranCh) })
	item.Completion.Resolve(domain.TimedOut, nil)

	if err := queue.Enqueue(item); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	select {
	case <-ranCh:
	case <-time.After(time.Second):
		t.Fatalf("expected the dispatcher to still run a timed-out item")
	}

	outcome, _ := item.Completion.Result()
	if outcome != domain.TimedOut {
		t.Fatalf("expected the completion to remain TimedOut, got %s", outcome)
	}

	queue.Close()
	d.Drain()
}

func TestDispatcher_DrainWaitsForInFlightWork(t *testing.T) {
	queue := infra.NewWaitQueue(4)
	d := &Dispatcher{Queue: queue}
	go d.Run()

	release := make(chan struct{})
	started := make(chan struct{})
	item := domain.NewWorkItem(func() {
		close(started)
		<-release
	})
	if err := queue.Enqueue(item); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	<-started
	queue.Close()

	drained := make(chan struct{})
	go func() {
		d.Drain()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatalf("expected Drain to block until in-flight work finishes")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for Drain")
	}
}
