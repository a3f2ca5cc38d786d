package sync

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/triesync/client/core/rawdb"
)

// SnapshotableStore is the persistence collaborator for one of the two
// stores the engine writes to (trie nodes or contract code). Callers
// that need to touch both stores atomically must acquire their locks
// in a fixed order: state store outer, code store inner (see Lock).
// Inverting that order anywhere is a bug.
type SnapshotableStore interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte)
	KeyExists(key []byte) bool
	Commit() error
	PutIndexed(rawKey, value []byte) error

	// Lock and Unlock guard a critical section spanning possibly
	// several of the operations above, so a probe-then-insert or a
	// commit sequence observes a consistent snapshot.
	Lock()
	Unlock()
}

// KVStore is a SnapshotableStore backed by a rawdb.KVStore. Writes are
// buffered through a rawdb.BatchWriter and only reach the underlying
// store on Commit, giving the "snapshot until commit" semantics the
// engine's crash-safety argument depends on.
type KVStore struct {
	mu    sync.Mutex
	db    rawdb.KeyValueStore
	batch *rawdb.BatchWriter

	// probe accelerates the repeated store_probe step in the admission
	// gate (see handler.go's addNode): every Get hit against the backing
	// store is cached here so a hot hash does not round-trip through disk
	// on every rediscovery. KeyExists consults the cache but does not add
	// to it. It is never the source of truth -- a miss always falls
	// through to db.
	probe *fastcache.Cache
}

// NewKVStore wraps db as a SnapshotableStore with the probe-acceleration
// cache disabled.
func NewKVStore(db rawdb.KeyValueStore) *KVStore {
	return NewKVStoreWithProbeCache(db, 0)
}

// NewKVStoreWithProbeCache is NewKVStore with an explicit fastcache size in
// bytes, used by the CLI binary to size the probe cache per store.
// probeCacheBytes sizes the in-memory probe-acceleration cache (see
// KVStore.probe); 0 disables it.
func NewKVStoreWithProbeCache(db rawdb.KeyValueStore, probeCacheBytes int) *KVStore {
	s := &KVStore{db: db, batch: rawdb.NewBatchWriter(db)}
	if probeCacheBytes > 0 {
		s.probe = fastcache.New(probeCacheBytes)
	}
	return s
}

// Get reads a key, checking the uncommitted batch first so a value
// written earlier in the same session is visible before commit.
func (s *KVStore) Get(key []byte) ([]byte, bool) {
	if v, ok := s.batch.Pending(key); ok {
		return v, true
	}
	if s.probe != nil {
		if v, ok := s.probe.HasGet(nil, key); ok {
			return v, true
		}
	}
	v, err := s.db.Get(key)
	if err != nil {
		return nil, false
	}
	if s.probe != nil {
		s.probe.Set(key, v)
	}
	return v, true
}

// Set buffers a write, to be made durable on the next Commit.
func (s *KVStore) Set(key, value []byte) {
	_ = s.batch.Put(key, value)
}

// KeyExists reports whether key is present, either already committed
// or buffered in the current batch.
func (s *KVStore) KeyExists(key []byte) bool {
	if s.batch.Has(key) {
		return true
	}
	if s.probe != nil && s.probe.Has(key) {
		return true
	}
	ok, err := s.db.Has(key)
	return err == nil && ok
}

// Commit flushes all buffered writes atomically to the backing store.
func (s *KVStore) Commit() error {
	return s.batch.Flush()
}

// PutIndexed writes rawKey directly, bypassing the batch. It is used
// only for the progress record, which must be readable by a fresh
// process immediately after the write that persists it, independent of
// whether the surrounding batch has been committed.
func (s *KVStore) PutIndexed(rawKey, value []byte) error {
	return s.db.Put(rawKey, value)
}

// Lock acquires the store's exclusive lock.
func (s *KVStore) Lock() { s.mu.Lock() }

// Unlock releases the store's exclusive lock.
func (s *KVStore) Unlock() { s.mu.Unlock() }
