// Package sync implements the fast state-sync downloader: given the
// 32-byte root hash of a Merkle-Patricia state trie, it drives a
// pipelined request/response dialogue with a remote peer to retrieve
// every trie node, contract code blob, and storage-trie node reachable
// from that root, persisting each into the appropriate key-value store.
//
// The walk is depth-first and dependency-tracked: a branch, extension
// or leaf is only written to the store once every child it references
// has itself been saved, so a crash can never leave a parent pointing
// at a hole. See orchestrator.go for the orchestrator that ties the
// pieces together.
package sync

import (
	"errors"

	"github.com/triesync/client/core/types"
)

// NodeKind classifies a SyncItem by the sub-trie it belongs to and,
// transitively, which store it is destined for.
type NodeKind uint8

const (
	// KindState identifies a node belonging to the top-level account
	// trie.
	KindState NodeKind = iota
	// KindStorage identifies a node belonging to a per-account storage
	// trie.
	KindStorage
	// KindCode identifies a contract bytecode blob.
	KindCode
)

func (k NodeKind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindStorage:
		return "storage"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// SyncItem is the unit of work dispatched to a peer and tracked until
// its payload is saved.
type SyncItem struct {
	Hash     types.Hash
	Kind     NodeKind
	Level    int
	Priority float32
	IsRoot   bool

	// Missing marks an item re-queued after its previous request timed
	// out or came back empty. It bypasses dedup and store probes.
	Missing bool
}

// DependentParent is a parent node waiting on one or more children
// before it can be saved. Two DependentParents are equal iff their
// SyncItem hashes match; see dependency.go.
type DependentParent struct {
	Item    SyncItem
	Payload []byte
	Counter int
}

// Sentinel errors returned by the sync engine. These map directly to
// the taxonomy a caller must handle: Canceled and PeerReturnedNothing
// and InvalidPeerData are recoverable by re-planning; InvariantBroken
// and the decode errors are not.
var (
	// ErrCanceled is returned when the cancellation signal fires while
	// a batch is in flight. No data is committed for that batch.
	ErrCanceled = errors.New("sync: canceled")

	// ErrPeerReturnedNothing is returned when a batch's response array
	// is absent, or when zero items in it were accepted.
	ErrPeerReturnedNothing = errors.New("sync: peer returned nothing")

	// ErrInvalidPeerData is returned when a response blob's digest does
	// not match the hash it was requested for.
	ErrInvalidPeerData = errors.New("sync: invalid peer data")

	// ErrInvariantBroken is returned when the root is saved while the
	// dependency map or pending queue is still non-empty, indicating a
	// logic bug rather than a network condition.
	ErrInvariantBroken = errors.New("sync: invariant broken")

	// ErrSyncUnknownNode is returned when a decoded trie node is none
	// of Branch, Extension, or Leaf.
	ErrSyncUnknownNode = errors.New("sync: decoded node is not branch, extension or leaf")
)

// MaxBatchItems bounds the number of SyncItems a single Batch may
// carry.
const MaxBatchItems = 384

// MaxPending is the maximum number of batches that may be in flight at
// once. The reference engine keeps exactly one round-trip outstanding;
// this bounds memory and makes progress journaling trivial.
const MaxPending = 1

// DedupCacheCapacity bounds the number of recently-saved hashes kept in
// the Dedup Cache before older entries are evicted.
const DedupCacheCapacity = 65536
