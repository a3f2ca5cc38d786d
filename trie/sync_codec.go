// sync_codec.go exposes a decoding view of trie nodes suitable for state
// synchronization, where a node's children are only known once the raw
// bytes are fetched from a remote peer and decoded. It reuses the internal
// RLP node decoder (decoder.go, node.go) but surfaces only the 32-byte hash
// references a syncing client needs to schedule further downloads -- an
// embedded (inlined) child carries no separate hash and needs no fetch.
package trie

import "errors"

// SyncNodeKind identifies the structural shape of a decoded trie node as
// seen by a state-sync client.
type SyncNodeKind int

const (
	// SyncUnknown marks a node that failed to decode into one of the three
	// canonical MPT shapes.
	SyncUnknown SyncNodeKind = iota
	SyncBranch
	SyncExtension
	SyncLeaf
)

// ErrSyncUnknownNode is returned by DecodeSyncNode when the decoded node is
// neither a branch, an extension, nor a leaf.
var ErrSyncUnknownNode = errors.New("trie: node is not branch, extension or leaf")

// SyncNode is the caller-facing view of a decoded trie node used while
// walking an unknown remote trie.
type SyncNode struct {
	Kind SyncNodeKind

	// Branch: up to 16 child hash references, indexed by nibble. A nil
	// entry means that slot is empty or its child is embedded inline (no
	// hash to request).
	BranchChildren [16][]byte

	// Extension: the single child hash reference, or nil if the child is
	// embedded inline.
	ExtensionChild []byte

	// Leaf: the raw value bytes carried by the leaf.
	LeafValue []byte
}

// DecodeSyncNode decodes raw RLP-encoded node bytes into a SyncNode. It is
// the TrieCodec reference implementation backing package statesync.
func DecodeSyncNode(data []byte) (*SyncNode, error) {
	n, err := decodeNode(nil, data)
	if err != nil {
		return nil, err
	}
	switch t := n.(type) {
	case *fullNode:
		out := &SyncNode{Kind: SyncBranch}
		for i := 0; i < 16; i++ {
			if hn, ok := t.Children[i].(hashNode); ok {
				out.BranchChildren[i] = []byte(hn)
			}
		}
		return out, nil
	case *shortNode:
		if hasTerm(t.Key) {
			vn, _ := t.Val.(valueNode)
			return &SyncNode{Kind: SyncLeaf, LeafValue: []byte(vn)}, nil
		}
		out := &SyncNode{Kind: SyncExtension}
		if hn, ok := t.Val.(hashNode); ok {
			out.ExtensionChild = []byte(hn)
		}
		return out, nil
	default:
		return nil, ErrSyncUnknownNode
	}
}
