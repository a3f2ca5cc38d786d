package sync

import "github.com/triesync/client/core/types"

// DependencyTracker maps an unsaved child hash to the set of parents
// blocked on it. It is mutated only from the Response Handler's goroutine;
// no external synchronization is needed because the engine drives a
// single cooperative walk (see package doc).
//
// Because the trie is a DAG rooted at a content address, the
// dependency graph it induces cannot contain cycles: a simple map
// suffices, with no cycle detection.
type DependencyTracker struct {
	waiters map[types.Hash][]*DependentParent
}

// NewDependencyTracker creates an empty DependencyTracker.
func NewDependencyTracker() *DependencyTracker {
	return &DependencyTracker{waiters: make(map[types.Hash][]*DependentParent)}
}

// AddDependency records that parent is waiting on childHash. Structural
// equality on parent.Item.Hash prevents the same parent object from
// being inserted twice for the same child.
func (d *DependencyTracker) AddDependency(childHash types.Hash, parent *DependentParent) {
	for _, p := range d.waiters[childHash] {
		if p.Item.Hash == parent.Item.Hash {
			return
		}
	}
	d.waiters[childHash] = append(d.waiters[childHash], parent)
}

// HasWaiters reports whether any parent is currently waiting on hash.
// AddNode uses this to classify a newly-discovered hash as
// AlreadyRequested.
func (d *DependencyTracker) HasWaiters(hash types.Hash) bool {
	_, ok := d.waiters[hash]
	return ok
}

// Len returns the number of distinct hashes with at least one waiting
// parent. The Sync Orchestrator asserts this is zero at root save.
func (d *DependencyTracker) Len() int {
	return len(d.waiters)
}

// Reset discards all tracked dependencies, used between sync sessions.
func (d *DependencyTracker) Reset() {
	d.waiters = make(map[types.Hash][]*DependentParent)
}

// RunChainReaction is invoked after justSavedHash has been durably
// written. It decrements the counter of every parent waiting on that
// hash and recursively saves any parent whose counter reaches zero,
// propagating "completion" up the trie. save is called with the
// engine's save function so the recursion stays inside this file.
func (d *DependencyTracker) RunChainReaction(justSavedHash types.Hash, save func(*DependentParent) error) error {
	parents, ok := d.waiters[justSavedHash]
	if !ok {
		return nil
	}
	delete(d.waiters, justSavedHash)

	for _, parent := range parents {
		parent.Counter--
		if parent.Counter == 0 {
			if err := save(parent); err != nil {
				return err
			}
		}
	}
	return nil
}
