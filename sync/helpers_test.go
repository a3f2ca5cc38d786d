package sync

import (
	"context"

	"github.com/triesync/client/core/rawdb"
	"github.com/triesync/client/core/types"
)

// hashOf builds a distinct, deterministic types.Hash from a single
// byte, for tests that only need unique identifiers rather than real
// digests.
func hashOf(b byte) types.Hash {
	var h types.Hash
	h[len(h)-1] = b
	return h
}

// newTestStores returns a pair of in-memory SnapshotableStores,
// suitable as the state and code stores for an Engine under test.
func newTestStores() (state, code SnapshotableStore) {
	return NewKVStore(rawdb.NewMemoryKVStore()), NewKVStore(rawdb.NewMemoryKVStore())
}

// scriptedExecutor is a RequestExecutor whose responses are looked up
// from a fixed table of hash -> payload, simulating a well-behaved
// remote peer. missing, if set, contains hashes the peer pretends not
// to have (nil response slot).
type scriptedExecutor struct {
	data    map[types.Hash][]byte
	missing map[types.Hash]bool
	calls   []Batch
}

func (s *scriptedExecutor) ExecuteRequest(_ context.Context, batch Batch) (Batch, error) {
	s.calls = append(s.calls, batch)
	responses := make([][]byte, len(batch.Items))
	for i, item := range batch.Items {
		if s.missing[item.Hash] {
			continue
		}
		responses[i] = s.data[item.Hash]
	}
	return Batch{Items: batch.Items, Responses: responses}, nil
}

// totalRequestedItems sums item counts across every dispatched batch,
// including retries -- what the Progress Record's "requested" counter
// is expected to track.
func (s *scriptedExecutor) totalRequestedItems() int {
	n := 0
	for _, b := range s.calls {
		n += len(b.Items)
	}
	return n
}

// fakeNode is a hand-built DecodedNode for tests that need to control
// a trie node's shape directly (e.g. two branch slots sharing one
// child hash), which a real encoded trie cannot be coaxed into
// producing on demand.
type fakeNode struct {
	kind     DecodedKind
	children [16]types.Hash
	extChild types.Hash
	leaf     []byte
}

func (f fakeNode) Kind() DecodedKind          { return f.kind }
func (f fakeNode) BranchChild(i int) types.Hash { return f.children[i] }
func (f fakeNode) ExtensionChild() types.Hash   { return f.extChild }
func (f fakeNode) LeafValue() []byte            { return f.leaf }

// fakeTrieCodec and fakeAccountCodec decode by exact payload identity,
// so a test can script arbitrary node shapes without real RLP.
type fakeTrieCodec map[string]DecodedNode

func (f fakeTrieCodec) Decode(data []byte) (DecodedNode, error) {
	n, ok := f[string(data)]
	if !ok {
		return nil, ErrSyncUnknownNode
	}
	return n, nil
}

type fakeAccountCodec map[string]Account

func (f fakeAccountCodec) Decode(data []byte) (Account, error) {
	a, ok := f[string(data)]
	if !ok {
		return Account{}, ErrSyncUnknownNode
	}
	return a, nil
}
