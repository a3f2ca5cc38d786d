package sync

import (
	"github.com/triesync/client/core/types"
	"github.com/triesync/client/trie"
)

// DecodedKind identifies the structural shape of a decoded trie node.
type DecodedKind int

const (
	// DecodedUnknown marks a node that decoded into none of the three
	// canonical shapes; the engine treats this as fatal.
	DecodedUnknown DecodedKind = iota
	DecodedBranch
	DecodedExtension
	DecodedLeaf
)

// DecodedNode is the Response Handler's view of a trie node, independent
// of the wire/RLP representation TrieCodec implementations decode from.
type DecodedNode interface {
	Kind() DecodedKind

	// BranchChild returns the hash referenced by branch slot i (0-15),
	// or the zero hash if that slot is empty or embedded inline.
	BranchChild(i int) types.Hash

	// ExtensionChild returns the single child hash of an Extension
	// node, or the zero hash if the child is embedded inline.
	ExtensionChild() types.Hash

	// LeafValue returns the raw value bytes carried by a Leaf node.
	LeafValue() []byte
}

// TrieCodec decodes raw node bytes fetched from a peer into a
// DecodedNode. The default implementation delegates to the trie
// package's own RLP node decoder.
type TrieCodec interface {
	Decode(data []byte) (DecodedNode, error)
}

// Account is the subset of an account leaf's fields the sync engine
// needs to schedule code and storage-trie downloads.
type Account struct {
	CodeHash    types.Hash
	StorageRoot types.Hash
}

// AccountCodec decodes an account leaf's raw value bytes into an
// Account. The default implementation delegates to the trie package.
type AccountCodec interface {
	Decode(leafValue []byte) (Account, error)
}

// defaultTrieCodec adapts trie.DecodeSyncNode.
type defaultTrieCodec struct{}

// NewTrieCodec returns the reference TrieCodec, backed by the trie
// package's RLP node decoder.
func NewTrieCodec() TrieCodec { return defaultTrieCodec{} }

func (defaultTrieCodec) Decode(data []byte) (DecodedNode, error) {
	n, err := trie.DecodeSyncNode(data)
	if err != nil {
		return nil, err
	}
	return syncNodeView{n}, nil
}

// syncNodeView adapts *trie.SyncNode to the DecodedNode interface.
type syncNodeView struct{ n *trie.SyncNode }

func (v syncNodeView) Kind() DecodedKind {
	switch v.n.Kind {
	case trie.SyncBranch:
		return DecodedBranch
	case trie.SyncExtension:
		return DecodedExtension
	case trie.SyncLeaf:
		return DecodedLeaf
	default:
		return DecodedUnknown
	}
}

func (v syncNodeView) BranchChild(i int) types.Hash {
	if i < 0 || i >= 16 {
		return types.Hash{}
	}
	return bytesToHashOrZero(v.n.BranchChildren[i])
}

func (v syncNodeView) ExtensionChild() types.Hash {
	return bytesToHashOrZero(v.n.ExtensionChild)
}

func (v syncNodeView) LeafValue() []byte { return v.n.LeafValue }

func bytesToHashOrZero(b []byte) types.Hash {
	if len(b) != 32 {
		return types.Hash{}
	}
	return types.BytesToHash(b)
}

// defaultAccountCodec adapts trie.DecodeSyncAccount.
type defaultAccountCodec struct{}

// NewAccountCodec returns the reference AccountCodec, backed by the
// trie package's account-leaf decoder.
func NewAccountCodec() AccountCodec { return defaultAccountCodec{} }

func (defaultAccountCodec) Decode(leafValue []byte) (Account, error) {
	a, err := trie.DecodeSyncAccount(leafValue)
	if err != nil {
		return Account{}, err
	}
	return Account{CodeHash: a.CodeHash, StorageRoot: a.StorageRoot}, nil
}
