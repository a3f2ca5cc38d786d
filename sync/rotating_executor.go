package sync

import "context"

// RotatingExecutor binds a fixed set of RequestExecutors, one per peer
// slot (at most Config.MaxPeers of them), as a single RequestExecutor
// that rotates to the next binding whenever the active one is penalized.
// This is the mechanism behind the "rotate through on InvalidPeerData/
// timeout" policy: a single misbehaving or slow peer binding costs the
// session a batch's worth of retries rather than the whole sync.
type RotatingExecutor struct {
	bindings []RequestExecutor
	current  int
}

// NewRotatingExecutor wraps bindings as a RotatingExecutor. It panics if
// bindings is empty; a rotation policy with no bindings is a construction
// bug, not a runtime condition.
func NewRotatingExecutor(bindings []RequestExecutor) *RotatingExecutor {
	if len(bindings) == 0 {
		panic("sync: RotatingExecutor requires at least one binding")
	}
	return &RotatingExecutor{bindings: bindings}
}

// ExecuteRequest dispatches through the currently active binding. The
// engine's Sync loop is single-threaded with respect to in-flight
// requests (MaxPending), so no locking is needed here.
func (r *RotatingExecutor) ExecuteRequest(ctx context.Context, batch Batch) (Batch, error) {
	return r.bindings[r.current].ExecuteRequest(ctx, batch)
}

// RotateOnFailure advances to the next peer binding, wrapping around.
func (r *RotatingExecutor) RotateOnFailure(reason error) {
	r.current = (r.current + 1) % len(r.bindings)
}

// ActiveIndex reports the currently active binding's index, for logging
// and tests.
func (r *RotatingExecutor) ActiveIndex() int {
	return r.current
}

// Len reports the number of bound peer slots.
func (r *RotatingExecutor) Len() int {
	return len(r.bindings)
}

var (
	_ RequestExecutor = (*RotatingExecutor)(nil)
	_ PeerRotator     = (*RotatingExecutor)(nil)
)
