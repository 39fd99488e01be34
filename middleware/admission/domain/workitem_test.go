package domain

import (
	"errors"
	"testing"
)

func TestCompletion_ResolveIsAtMostOnce(t *testing.T) {
	c := NewCompletion()

	if !c.Resolve(Done, nil) {
		t.Fatalf("expected first Resolve to win")
	}
	if c.Resolve(TimedOut, nil) {
		t.Fatalf("expected second Resolve to be a no-op")
	}

	outcome, err := c.Result()
	if outcome != Done {
		t.Fatalf("expected outcome to stay Done, got %s", outcome)
	}
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestCompletion_DoneChannelClosesOnResolve(t *testing.T) {
	c := NewCompletion()

	select {
	case <-c.Done():
		t.Fatalf("expected Done channel to be open before Resolve")
	default:
	}

	wantErr := errors.New("boom")
	c.Resolve(Failed, wantErr)

	<-c.Done() // must not block

	outcome, err := c.Result()
	if outcome != Failed {
		t.Fatalf("expected Failed, got %s", outcome)
	}
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestNewWorkItem_HasUniqueID(t *testing.T) {
	a := NewWorkItem(func() {})
	b := NewWorkItem(func() {})

	if a.ID == b.ID {
		t.Fatalf("expected distinct work item IDs")
	}
	if a.Completion == nil || a.Completion == b.Completion {
		t.Fatalf("expected each work item to own a distinct completion")
	}
}
