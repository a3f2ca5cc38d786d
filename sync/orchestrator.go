package sync

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/triesync/client/core/types"
	"github.com/triesync/client/log"
	"github.com/triesync/client/metrics"
)

var tracer = otel.Tracer("github.com/triesync/client/sync")

// Engine is the Sync Orchestrator: the public entry point that seeds
// the root, drives the Pending Queue / Request Planner / Response
// Handler pipeline until quiescent, and reports progress.
type Engine struct {
	stateStore SnapshotableStore
	codeStore  SnapshotableStore

	trieCodec    TrieCodec
	accountCodec AccountCodec
	executor     RequestExecutor

	queue    *PendingQueue
	dedup    *DedupCache
	deps     *DependencyTracker
	planner  *RequestPlanner
	progress *ProgressRecord

	codesSameAsNodes map[types.Hash]struct{}

	previousRoot types.Hash
	hasPrevious  bool

	log     *log.Logger
	metrics *metrics.Registry
}

// NewEngine builds a Sync Orchestrator over the given stores and
// codecs. The executor can be supplied here or later via SetExecutor.
func NewEngine(stateStore, codeStore SnapshotableStore, trieCodec TrieCodec, accountCodec AccountCodec) *Engine {
	queue := NewPendingQueue()
	progress, err := loadProgress(codeStore)
	if err != nil {
		// A corrupt progress record is treated as absent; the
		// is_fully_synced probe against the state store is the
		// authoritative source of truth regardless.
		progress = &ProgressRecord{}
	}

	return &Engine{
		stateStore:       stateStore,
		codeStore:        codeStore,
		trieCodec:        trieCodec,
		accountCodec:     accountCodec,
		queue:            queue,
		dedup:            NewDedupCache(DedupCacheCapacity),
		deps:             NewDependencyTracker(),
		planner:          NewRequestPlanner(queue),
		progress:         progress,
		codesSameAsNodes: make(map[types.Hash]struct{}),
		log:              log.Default().Module("statesync"),
		metrics:          metrics.DefaultRegistry,
	}
}

// SetExecutor installs the RequestExecutor used to dispatch batches.
// It may be called once before the first call to Sync; replacing it
// mid-sync is undefined.
func (e *Engine) SetExecutor(executor RequestExecutor) {
	e.executor = executor
}

// rotateExecutor penalizes the active executor binding if it implements
// PeerRotator, advancing the rotation to the next peer slot. It reports
// whether rotation happened, so a caller can fall back to treating the
// failure as fatal when the installed executor has no rotation policy.
func (e *Engine) rotateExecutor(reason error) bool {
	rotator, ok := e.executor.(PeerRotator)
	if !ok {
		return false
	}
	rotator.RotateOnFailure(reason)
	e.metrics.Counter("statesync_peer_rotations_total").Inc()
	return true
}

// IsFullySynced reports whether the state store contains hash as a
// key, i.e. whether that trie node has already been retrieved and
// committed.
func (e *Engine) IsFullySynced(hash types.Hash) bool {
	e.stateStore.Lock()
	defer e.stateStore.Unlock()
	return e.stateStore.KeyExists(trieStoreKey(hash))
}

// Sync drives the pipeline against rootHash until no batches remain
// outstanding, returning the Progress Record's Consumed counter, which
// is incremented once each time a Sync call drains the walk.
//
// If rootHash differs from the previously-seen root, or the previous
// session ended with a request still in flight, all in-memory state is
// discarded and the walk restarts from the new root; the open question
// of how narrowly to read "a request in flight" is resolved in favor
// of the safer reading: any positive pending count forces a reset, not
// only the exact value 1.
func (e *Engine) Sync(ctx context.Context, rootHash types.Hash) (int64, error) {
	ctx, span := tracer.Start(ctx, "Engine.Sync", trace.WithAttributes(
		attribute.String("root", rootHash.String()),
	))
	defer span.End()

	if rootHash == types.EmptyRootHash {
		return e.progress.Consumed, nil
	}

	if !e.hasPrevious || rootHash != e.previousRoot || e.planner.PendingRequests() > 0 {
		e.reset()
	}
	e.previousRoot = rootHash
	e.hasPrevious = true

	alreadySynced := e.dedup.Contains(rootHash) || e.IsFullySynced(rootHash)
	if e.queue.Len() == 0 && !e.deps.HasWaiters(rootHash) && !alreadySynced {
		e.queue.Push(SyncItem{Hash: rootHash, Kind: KindState, Level: 0, Priority: 1, IsRoot: true})
	}

	for {
		select {
		case <-ctx.Done():
			return e.progress.Consumed, ErrCanceled
		default:
		}

		batches := e.planner.PrepareRequests()
		if len(batches) == 0 {
			if e.planner.PendingRequests() == 0 {
				break
			}
			continue
		}

		e.metrics.Gauge("statesync_queue_depth").Set(int64(e.queue.Len()))

		for _, batch := range batches {
			e.progress.Requested += int64(len(batch.Items))

			start := time.Now()
			answered, err := e.executor.ExecuteRequest(ctx, batch)
			e.metrics.Histogram("statesync_batch_latency_ms").Observe(float64(time.Since(start).Milliseconds()))
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return e.progress.Consumed, ErrCanceled
				}
				if errors.Is(err, context.DeadlineExceeded) && e.rotateExecutor(err) {
					e.log.Warn("request timed out, rotated peer binding", "error", err)
					e.planner.DecrementPending()
					continue
				}
				span.RecordError(err)
				return e.progress.Consumed, err
			}

			if err := e.handleBatch(answered); err != nil {
				if !errors.Is(err, ErrPeerReturnedNothing) && !errors.Is(err, ErrInvalidPeerData) {
					return e.progress.Consumed, err
				}
				if errors.Is(err, ErrInvalidPeerData) {
					e.rotateExecutor(err)
				}
				e.log.Warn("batch failed, will re-plan", "error", err)
				continue
			}
		}
	}

	e.progress.Consumed++
	return e.progress.Consumed, nil
}

// reset discards all in-memory walk state. Progress counters are
// deliberately untouched: they persist across resets so a restarted
// session keeps its historical accounting.
func (e *Engine) reset() {
	e.queue.Reset()
	e.deps.Reset()
	e.planner.Reset()
	e.codesSameAsNodes = make(map[types.Hash]struct{})
}

// commitBatch persists the Progress Record and commits both stores, in
// the fixed lock and write order the crash-safety argument depends on:
// state-store lock outer, code-store lock inner; progress write, then
// code commit, then state commit, then clear the last-request slot.
func (e *Engine) commitBatch() error {
	e.stateStore.Lock()
	defer e.stateStore.Unlock()
	e.codeStore.Lock()
	defer e.codeStore.Unlock()

	if err := e.progress.persist(e.codeStore); err != nil {
		return err
	}
	if err := e.codeStore.Commit(); err != nil {
		return err
	}
	if err := e.stateStore.Commit(); err != nil {
		return err
	}
	e.planner.ClearLastRequest()
	return nil
}

// logInvalidPeerData records the diagnostics useful to a human
// debugging a misbehaving peer: whether the bad blob actually matches
// a different item in the same batch, which would point at a
// reordering bug rather than corruption.
func (e *Engine) logInvalidPeerData(batch Batch, index int, got types.Hash) {
	swapped := -1
	for j, item := range batch.Items {
		if j != index && item.Hash == got {
			swapped = j
			break
		}
	}
	e.log.Error("peer returned mismatched trie node",
		"index", index,
		"want", batch.Items[index].Hash,
		"got", got,
		"swappedWithIndex", swapped,
	)
	e.metrics.Counter("statesync_invalid_peer_data").Inc()
}
