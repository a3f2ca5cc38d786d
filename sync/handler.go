package sync

import (
	"github.com/triesync/client/core/types"
	"github.com/triesync/client/crypto"
)

// AddNodeResult is the tri-state outcome of the admission gate. It is
// modelled as an enum rather than a boolean-plus-sentinel because its
// three values drive three distinct control paths in handleAccepted.
type AddNodeResult int

const (
	Added AddNodeResult = iota
	AlreadyRequested
	AlreadySaved
)

// addNode is the admission gate every newly-discovered hash passes
// through before it is allowed onto the Pending Queue. The dependency
// edge is always
// recorded before the "already requested" decision is made, so a
// prior in-flight request that times out still resolves this waiter
// when it eventually arrives.
func (e *Engine) addNode(item SyncItem, parent *DependentParent) AddNodeResult {
	if item.Missing {
		e.queue.Push(item)
		return Added
	}

	if e.dedup.Contains(item.Hash) {
		return AlreadySaved
	}

	store := e.storeFor(item.Kind)
	store.Lock()
	exists := store.KeyExists(e.keyFor(item))
	store.Unlock()
	e.progress.DBChecks++

	if exists {
		e.dedup.Add(item.Hash)
		e.progress.StateWasThere++
		return AlreadySaved
	}
	e.progress.StateWasNotThere++

	hadWaiters := e.deps.HasWaiters(item.Hash)
	if parent != nil {
		e.deps.AddDependency(item.Hash, parent)
	}
	if hadWaiters {
		return AlreadyRequested
	}

	e.queue.Push(item)
	return Added
}

func (e *Engine) storeFor(kind NodeKind) SnapshotableStore {
	if kind == KindCode {
		return e.codeStore
	}
	return e.stateStore
}

func (e *Engine) keyFor(item SyncItem) []byte {
	if item.Kind == KindCode {
		return codeStoreKey(item.Hash)
	}
	return trieStoreKey(item.Hash)
}

// handleBatch validates and expands every accepted item in batch, then
// commits. It returns ErrPeerReturnedNothing or ErrInvalidPeerData for
// the recoverable network-level failures described in the component
// design; any other error is an invariant violation or decode failure
// and should abort the sync.
func (e *Engine) handleBatch(batch Batch) error {
	// A round trip has completed (successfully or not) by the time this
	// function returns, so the in-flight slot it occupied is always
	// freed here; the caller distinguishes success from a recoverable
	// failure by the returned error.
	defer e.planner.DecrementPending()

	if batch.Responses == nil {
		return ErrPeerReturnedNothing
	}

	added := 0
	for i, item := range batch.Items {
		var resp []byte
		if i < len(batch.Responses) {
			resp = batch.Responses[i]
		}

		if len(resp) == 0 {
			item.Missing = true
			e.queue.Push(item)
			continue
		}

		digest := crypto.Keccak256Hash(resp)
		if digest != item.Hash {
			e.logInvalidPeerData(batch, i, digest)
			return ErrInvalidPeerData
		}

		added++
		if err := e.acceptItem(item, resp); err != nil {
			return err
		}
	}

	if err := e.commitBatch(); err != nil {
		return err
	}
	if added == 0 {
		return ErrPeerReturnedNothing
	}
	return nil
}

// acceptItem expands a single validated item according to its kind and
// decoded shape, per the Branch/Extension/Leaf rules in the component
// design.
func (e *Engine) acceptItem(item SyncItem, payload []byte) error {
	if item.Kind == KindCode {
		return e.save(&DependentParent{Item: item, Payload: payload})
	}

	node, err := e.trieCodec.Decode(payload)
	if err != nil {
		return err
	}

	switch node.Kind() {
	case DecodedBranch:
		return e.acceptBranch(item, payload, node)
	case DecodedExtension:
		return e.acceptExtension(item, payload, node)
	case DecodedLeaf:
		return e.acceptLeaf(item, payload, node)
	default:
		return ErrSyncUnknownNode
	}
}

func (e *Engine) acceptBranch(item SyncItem, payload []byte, node DecodedNode) error {
	parent := &DependentParent{Item: item, Payload: payload}
	seen := make(map[types.Hash]struct{}, 16)

	for i := 0; i < 16; i++ {
		child := node.BranchChild(i)
		if child == (types.Hash{}) {
			continue
		}
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}

		childItem := SyncItem{Hash: child, Kind: item.Kind, Level: item.Level + 1, Priority: e.planner.ChildPriority(item)}
		if e.addNode(childItem, parent) != AlreadySaved {
			parent.Counter++
		}
	}

	if parent.Counter == 0 {
		return e.save(parent)
	}
	return nil
}

func (e *Engine) acceptExtension(item SyncItem, payload []byte, node DecodedNode) error {
	child := node.ExtensionChild()
	if child == (types.Hash{}) {
		// Embedded child: no separate hash to fetch, so the node is
		// already complete.
		return e.save(&DependentParent{Item: item, Payload: payload})
	}

	parent := &DependentParent{Item: item, Payload: payload, Counter: 1}
	childItem := SyncItem{Hash: child, Kind: item.Kind, Level: item.Level + 1, Priority: e.planner.ChildPriority(item)}
	if e.addNode(childItem, parent) == AlreadySaved {
		parent.Counter = 0
		return e.save(parent)
	}
	return nil
}

func (e *Engine) acceptLeaf(item SyncItem, payload []byte, node DecodedNode) error {
	if item.Kind != KindState {
		// A storage-trie leaf carries a raw value with no further
		// structure to walk.
		return e.save(&DependentParent{Item: item, Payload: payload})
	}

	account, err := e.accountCodec.Decode(node.LeafValue())
	if err != nil {
		return err
	}

	parent := &DependentParent{Item: item, Payload: payload}

	if account.CodeHash != types.EmptyCodeHash {
		if account.CodeHash == account.StorageRoot {
			e.codesSameAsNodes[account.CodeHash] = struct{}{}
		} else {
			codeItem := SyncItem{Hash: account.CodeHash, Kind: KindCode, Level: 0, Priority: 0}
			if e.addNode(codeItem, parent) != AlreadySaved {
				parent.Counter++
			}
		}
	}

	if account.StorageRoot != types.EmptyRootHash {
		storageItem := SyncItem{Hash: account.StorageRoot, Kind: KindStorage, Level: 0, Priority: 0}
		if e.addNode(storageItem, parent) != AlreadySaved {
			parent.Counter++
		}
	}

	if parent.Counter == 0 {
		e.progress.SavedAccounts++
		return e.save(parent)
	}
	return nil
}
