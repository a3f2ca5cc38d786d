package sync

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/triesync/client/core/types"
)

// DedupCache is a bounded, set-semantics cache of recently-saved
// hashes. It exists to let AddNode short-circuit the store probe for
// the common case of a hash that was only just written, without
// growing without bound over a long sync.
type DedupCache struct {
	lru *lru.Cache[types.Hash, struct{}]
}

// NewDedupCache creates a DedupCache with the given capacity. Capacity
// must be positive.
func NewDedupCache(capacity int) *DedupCache {
	c, err := lru.New[types.Hash, struct{}](capacity)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// programmer error at construction time.
		panic(err)
	}
	return &DedupCache{lru: c}
}

// Contains reports whether hash was recently saved.
func (d *DedupCache) Contains(hash types.Hash) bool {
	return d.lru.Contains(hash)
}

// Add records hash as saved, evicting the least-recently-used entry if
// the cache is at capacity.
func (d *DedupCache) Add(hash types.Hash) {
	d.lru.Add(hash, struct{}{})
}

// Len returns the number of hashes currently cached.
func (d *DedupCache) Len() int {
	return d.lru.Len()
}
