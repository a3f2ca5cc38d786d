package sync

import (
	"math/big"
	"testing"

	"github.com/triesync/client/core/types"
	"github.com/triesync/client/trie"
)

func TestDefaultAccountCodec_Decode(t *testing.T) {
	codeHash := types.HexToHash("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	storageRoot := types.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	encoded := trie.EncodeAccountFields(7, big.NewInt(100), storageRoot, codeHash)

	codec := NewAccountCodec()
	account, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if account.CodeHash != codeHash {
		t.Fatalf("CodeHash = %v, want %v", account.CodeHash, codeHash)
	}
	if account.StorageRoot != storageRoot {
		t.Fatalf("StorageRoot = %v, want %v", account.StorageRoot, storageRoot)
	}
}

// buildTestTrie inserts key/value pairs into a fresh trie, commits it,
// and returns the root hash plus a map of every encoded node keyed by
// its own hash -- a stand-in for what a real remote peer would serve
// in response to state-sync requests.
func buildTestTrie(t *testing.T, kvs map[string][]byte) (types.Hash, map[types.Hash][]byte) {
	t.Helper()
	tr := trie.New()
	for k, v := range kvs {
		if err := tr.Put([]byte(k), v); err != nil {
			t.Fatalf("Put(%q) error: %v", k, err)
		}
	}

	ndb := trie.NewNodeDatabase(nil)
	root, err := trie.CommitTrie(tr, ndb)
	if err != nil {
		t.Fatalf("CommitTrie error: %v", err)
	}

	fixtures := make(map[types.Hash][]byte)
	writer := trie.NewRawDBNodeWriter(func(key, value []byte) error {
		h := types.BytesToHash(key[1:]) // strip the "t" node-key prefix
		cp := make([]byte, len(value))
		copy(cp, value)
		fixtures[h] = cp
		return nil
	})
	if err := ndb.Commit(writer); err != nil {
		t.Fatalf("ndb.Commit error: %v", err)
	}
	return root, fixtures
}

func TestDefaultTrieCodec_DecodesRealLeaf(t *testing.T) {
	value := []byte("hello-world-value")
	root, fixtures := buildTestTrie(t, map[string][]byte{
		"only-key": value,
	})

	data, ok := fixtures[root]
	if !ok {
		t.Fatalf("expected the single-leaf trie's root to be in its own fixture set")
	}

	codec := NewTrieCodec()
	node, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if node.Kind() != DecodedLeaf {
		t.Fatalf("Kind() = %v, want DecodedLeaf", node.Kind())
	}
	if string(node.LeafValue()) != string(value) {
		t.Fatalf("LeafValue() = %q, want %q", node.LeafValue(), value)
	}
}
