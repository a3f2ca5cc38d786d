package main

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/triesync/client/core/types"
	"github.com/triesync/client/sync"
	"github.com/triesync/client/trie"
)

// demoFixtureExecutor is a RequestExecutor backed by a trie built entirely
// in-process, standing in for a real peer-network binding (out of scope for
// this core; see SPEC_FULL.md §11.3). It exists so the binary has something
// to drive end-to-end without a live network.
type demoFixtureExecutor struct {
	nodes     map[types.Hash][]byte
	roundTrip time.Duration
}

// newDemoFixtureExecutor builds a small demo trie and indexes every node it
// produces by hash, the same way sync/codec_test.go's buildTestTrie does for
// tests.
func newDemoFixtureExecutor(roundTrip time.Duration) (*demoFixtureExecutor, types.Hash, error) {
	tr := trie.New()
	// Balances are held as uint256.Int, matching go-ethereum's own account
	// representation, and converted to *big.Int only at the RLP-encoding
	// boundary that trie.EncodeAccountFields expects.
	demo := map[string]*uint256.Int{
		"alice": uint256.NewInt(1000),
		"bob":   uint256.NewInt(250),
		"carol": uint256.NewInt(75),
	}
	for k, balance := range demo {
		account := trie.EncodeAccountFields(0, balance.ToBig(), types.EmptyRootHash, types.EmptyCodeHash)
		if err := tr.Put([]byte(k), account); err != nil {
			return nil, types.Hash{}, err
		}
	}

	ndb := trie.NewNodeDatabase(nil)
	root, err := trie.CommitTrie(tr, ndb)
	if err != nil {
		return nil, types.Hash{}, err
	}

	nodes := make(map[types.Hash][]byte)
	writer := trie.NewRawDBNodeWriter(func(key, value []byte) error {
		h := types.BytesToHash(key[1:])
		cp := make([]byte, len(value))
		copy(cp, value)
		nodes[h] = cp
		return nil
	})
	if err := ndb.Commit(writer); err != nil {
		return nil, types.Hash{}, err
	}

	return &demoFixtureExecutor{
		nodes:     nodes,
		roundTrip: roundTrip,
	}, root, nil
}

func (e *demoFixtureExecutor) ExecuteRequest(ctx context.Context, batch sync.Batch) (sync.Batch, error) {
	select {
	case <-ctx.Done():
		return sync.Batch{}, ctx.Err()
	case <-time.After(e.roundTrip):
	}

	responses := make([][]byte, len(batch.Items))
	for i, item := range batch.Items {
		responses[i] = e.nodes[item.Hash]
	}
	return sync.Batch{Items: batch.Items, Responses: responses}, nil
}
