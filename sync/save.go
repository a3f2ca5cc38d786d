package sync

import (
	"github.com/triesync/client/core/rawdb"
	"github.com/triesync/client/core/types"
)

// trieStoreKey and codeStoreKey delegate to the schema owned by
// core/rawdb (the package both stores are ultimately backed by), so a
// future accessor outside the sync package builds identical keys.
func trieStoreKey(hash types.Hash) []byte {
	return rawdb.TrieNodeKey(hash[:])
}

func codeStoreKey(hash types.Hash) []byte {
	return rawdb.CodeKey(hash[:])
}

// save writes parent's payload to the correct store, folds in the
// codes-same-as-nodes collision case, asserts the root invariant, and
// triggers the chain reaction for anything waiting on this hash.
//
// save is itself the callback RunChainReaction invokes for each parent
// that reaches a zero counter, so a single arriving leaf can cascade
// through many saves synchronously before this call returns.
func (e *Engine) save(parent *DependentParent) error {
	item := parent.Item
	e.progress.SavedNodes++

	switch item.Kind {
	case KindState:
		e.stateStore.Set(trieStoreKey(item.Hash), parent.Payload)
		e.progress.SavedState++
	case KindStorage:
		e.stateStore.Set(trieStoreKey(item.Hash), parent.Payload)
		e.progress.SavedStorage++
		if _, collides := e.codesSameAsNodes[item.Hash]; collides {
			e.codeStore.Set(codeStoreKey(item.Hash), parent.Payload)
			delete(e.codesSameAsNodes, item.Hash)
			e.progress.SavedCode++
		}
	case KindCode:
		e.codeStore.Set(codeStoreKey(item.Hash), parent.Payload)
		e.progress.SavedCode++
	}

	e.dedup.Add(item.Hash)

	if item.IsRoot {
		if e.deps.Len() != 0 || e.queue.Len() != 0 {
			return ErrInvariantBroken
		}
	}

	return e.deps.RunChainReaction(item.Hash, e.save)
}
