package rawdb

// Key-space prefixes for the two stores a state-sync session writes to,
// mirroring go-ethereum's own rawdb schema convention of a single
// distinguishing byte ahead of a content hash. Keeping the prefix here
// rather than in the sync package means any future accessor (a CLI
// inspection command, a compaction job) can build the same keys without
// reaching into sync internals.
const (
	TrieNodePrefix = 't'
	CodePrefix     = 'c'
)

// TrieNodeKey builds the storage key for a trie node keyed by its
// 32-byte Keccak256 hash.
func TrieNodeKey(hash []byte) []byte {
	return prefixedKey(TrieNodePrefix, hash)
}

// CodeKey builds the storage key for a contract bytecode blob keyed by
// its 32-byte Keccak256 hash.
func CodeKey(hash []byte) []byte {
	return prefixedKey(CodePrefix, hash)
}

func prefixedKey(prefix byte, hash []byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = prefix
	copy(key[1:], hash)
	return key
}
