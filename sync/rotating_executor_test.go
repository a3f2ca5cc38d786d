package sync

import (
	"context"
	"errors"
	"testing"
)

// countingExecutor records how many times it was invoked and always
// returns an empty, successful batch.
type countingExecutor struct {
	calls int
}

func (c *countingExecutor) ExecuteRequest(_ context.Context, batch Batch) (Batch, error) {
	c.calls++
	return Batch{Items: batch.Items, Responses: make([][]byte, len(batch.Items))}, nil
}

func TestRotatingExecutor_DispatchesToActiveBinding(t *testing.T) {
	a, b := &countingExecutor{}, &countingExecutor{}
	re := NewRotatingExecutor([]RequestExecutor{a, b})

	if _, err := re.ExecuteRequest(context.Background(), Batch{}); err != nil {
		t.Fatalf("ExecuteRequest error: %v", err)
	}
	if a.calls != 1 || b.calls != 0 {
		t.Fatalf("expected binding 0 to be called, got a=%d b=%d", a.calls, b.calls)
	}
}

func TestRotatingExecutor_RotateOnFailureAdvancesAndWraps(t *testing.T) {
	a, b, c := &countingExecutor{}, &countingExecutor{}, &countingExecutor{}
	re := NewRotatingExecutor([]RequestExecutor{a, b, c})

	if re.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex = %d, want 0", re.ActiveIndex())
	}

	re.RotateOnFailure(errors.New("invalid peer data"))
	if re.ActiveIndex() != 1 {
		t.Fatalf("ActiveIndex after 1 rotation = %d, want 1", re.ActiveIndex())
	}

	re.RotateOnFailure(errors.New("timeout"))
	if re.ActiveIndex() != 2 {
		t.Fatalf("ActiveIndex after 2 rotations = %d, want 2", re.ActiveIndex())
	}

	re.RotateOnFailure(errors.New("timeout again"))
	if re.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex after 3 rotations = %d, want 0 (wrapped)", re.ActiveIndex())
	}
}

func TestRotatingExecutor_SinglePeerSelfRotates(t *testing.T) {
	a := &countingExecutor{}
	re := NewRotatingExecutor([]RequestExecutor{a})

	re.RotateOnFailure(errors.New("only peer misbehaved"))
	if re.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex = %d, want 0 (single-binding rotation is a no-op)", re.ActiveIndex())
	}
}

func TestEngine_RotatesExecutorOnInvalidPeerData(t *testing.T) {
	e := newTestEngine(nil, nil)

	bad := &scriptedExecutor{} // has no data, so every slot comes back empty
	good := &scriptedExecutor{}
	re := NewRotatingExecutor([]RequestExecutor{bad, good})
	e.SetExecutor(re)

	if _, ok := e.executor.(PeerRotator); !ok {
		t.Fatalf("RotatingExecutor does not satisfy PeerRotator")
	}

	e.rotateExecutor(ErrInvalidPeerData)
	if re.ActiveIndex() != 1 {
		t.Fatalf("ActiveIndex after rotateExecutor = %d, want 1", re.ActiveIndex())
	}
}
