package rawdb

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// PebbleKVStore is a KeyValueStore backed by a cockroachdb/pebble LSM-tree
// database. Unlike MemoryKVStore it survives process restarts, which is
// what a long-running state-sync client needs for its two on-disk stores.
type PebbleKVStore struct {
	db *pebble.DB
}

// OpenPebbleKVStore opens (creating if absent) a pebble database rooted at
// dir.
func OpenPebbleKVStore(dir string) (*PebbleKVStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleKVStore{db: db}, nil
}

// Get retrieves the value for a key. Returns ErrKVNotFound if absent, to
// match MemoryKVStore's error so callers of the KeyValueStore interface
// don't need to branch on the backend.
func (p *PebbleKVStore) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKVNotFound
		}
		return nil, err
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, closer.Close()
}

// Put stores a key-value pair, synced to disk.
func (p *PebbleKVStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

// Delete removes a key. It is a no-op if the key does not exist.
func (p *PebbleKVStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

// Has reports whether key is present.
func (p *PebbleKVStore) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, closer.Close()
}

// Close flushes and closes the underlying database.
func (p *PebbleKVStore) Close() error {
	return p.db.Close()
}

var _ KeyValueStore = (*PebbleKVStore)(nil)
