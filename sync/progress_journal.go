package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/triesync/client/crypto"
)

// progressCounterCount is the number of int64 fields in ProgressRecord,
// and thus the number of 8-byte big-endian words in its encoding.
const progressCounterCount = 10

// progressKey is the well-known key under which the Progress Record is
// stored in the code store, derived the same way any other
// content-addressed key in this module would be: by hashing a fixed
// label so it can never collide with a real 32-byte node hash by
// accident.
var progressKey = crypto.Keccak256Hash([]byte("fast_sync_progress")).Bytes()

// ProgressRecord is the crash-safe accounting the Sync Orchestrator
// reports and persists. Every field is monotonically non-decreasing
// across a sync session; see Engine.commitBatch for when it is
// written to disk.
type ProgressRecord struct {
	Consumed         int64
	SavedStorage     int64
	SavedState       int64
	SavedNodes       int64
	SavedAccounts    int64
	SavedCode        int64
	Requested        int64
	DBChecks         int64
	StateWasThere    int64
	StateWasNotThere int64
}

// Encode serializes the record as ten big-endian int64 words, in the
// field order declared above, matching the order the specification
// fixes for the persisted tuple.
func (r *ProgressRecord) Encode() []byte {
	buf := make([]byte, progressCounterCount*8)
	vals := [progressCounterCount]int64{
		r.Consumed, r.SavedStorage, r.SavedState, r.SavedNodes,
		r.SavedAccounts, r.SavedCode, r.Requested, r.DBChecks,
		r.StateWasThere, r.StateWasNotThere,
	}
	for i, v := range vals {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

// DecodeProgressRecord parses the byte sequence written by Encode. An
// empty slice decodes to the zero record, which is what a fresh store
// with no prior sync history should produce.
func DecodeProgressRecord(data []byte) (*ProgressRecord, error) {
	if len(data) == 0 {
		return &ProgressRecord{}, nil
	}
	if len(data) != progressCounterCount*8 {
		return nil, fmt.Errorf("sync: progress record has %d bytes, want %d", len(data), progressCounterCount*8)
	}
	r := &ProgressRecord{}
	vals := [progressCounterCount]*int64{
		&r.Consumed, &r.SavedStorage, &r.SavedState, &r.SavedNodes,
		&r.SavedAccounts, &r.SavedCode, &r.Requested, &r.DBChecks,
		&r.StateWasThere, &r.StateWasNotThere,
	}
	for i, field := range vals {
		*field = int64(binary.BigEndian.Uint64(data[i*8:]))
	}
	return r, nil
}

// loadProgress reads the persisted Progress Record from the code
// store, returning a zero record if none has been written yet.
func loadProgress(codeStore SnapshotableStore) (*ProgressRecord, error) {
	data, ok := codeStore.Get(progressKey)
	if !ok {
		return &ProgressRecord{}, nil
	}
	return DecodeProgressRecord(data)
}

// persist writes the record under the progress key. It uses
// PutIndexed rather than Set because the progress record must be
// readable immediately, independent of whether the surrounding batch
// of node writes has been committed yet (see Engine.commitBatch).
func (r *ProgressRecord) persist(codeStore SnapshotableStore) error {
	return codeStore.PutIndexed(progressKey, r.Encode())
}
