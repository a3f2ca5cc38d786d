package sync

import "context"

// Batch is a group of SyncItems dispatched together and, once
// answered, their positionally-aligned responses. Responses[i] is nil
// when the peer did not return anything for Items[i].
type Batch struct {
	Items     []SyncItem
	Responses [][]byte
}

// RequestExecutor delegates peer selection and the wire encoding of
// requests. Implementations may time out, return a subset of items, or
// (incorrectly) reorder responses; the engine treats a response at the
// wrong index as fatal for the whole batch rather than attempting to
// realign it.
type RequestExecutor interface {
	ExecuteRequest(ctx context.Context, batch Batch) (Batch, error)
}

// PeerRotator is an optional capability a RequestExecutor may implement
// to support Config.MaxPeers-bounded rotation: the engine calls
// RotateOnFailure after InvalidPeerData or a request timeout so the next
// request goes out
// over a different peer binding instead of hammering the same one.
type PeerRotator interface {
	RotateOnFailure(reason error)
}
