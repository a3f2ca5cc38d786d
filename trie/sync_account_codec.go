package trie

import "github.com/triesync/client/core/types"

// SyncAccount is the (code hash, storage root) pair a state-sync client
// needs to schedule an account's code and storage-trie children.
type SyncAccount struct {
	CodeHash    types.Hash
	StorageRoot types.Hash
}

// DecodeSyncAccount decodes an RLP-encoded account leaf value into the
// fields relevant to state sync. It is the AccountCodec reference
// implementation backing package statesync.
func DecodeSyncAccount(leafValue []byte) (SyncAccount, error) {
	_, _, storageRoot, codeHash, err := DecodeAccountFields(leafValue)
	if err != nil {
		return SyncAccount{}, err
	}
	return SyncAccount{CodeHash: codeHash, StorageRoot: storageRoot}, nil
}
