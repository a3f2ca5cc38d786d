package sync

import (
	"sync"
	"sync/atomic"
)

// RequestPlanner drains the Pending Queue into bounded batches,
// enforces the in-flight cap, and re-enqueues the previous batch's
// items if it was never acknowledged.
type RequestPlanner struct {
	queue *PendingQueue

	pendingRequests atomic.Int32

	mu            sync.Mutex
	lastRequest   *Batch
	maxStateLevel float64
}

// NewRequestPlanner creates a RequestPlanner draining the given queue.
func NewRequestPlanner(queue *PendingQueue) *RequestPlanner {
	return &RequestPlanner{queue: queue}
}

// PendingRequests returns the number of batches currently awaiting a
// response. In this engine it is always 0 or 1 (MaxPending).
func (p *RequestPlanner) PendingRequests() int {
	return int(p.pendingRequests.Load())
}

// DecrementPending records that an in-flight batch's response has been
// fully handled.
func (p *RequestPlanner) DecrementPending() {
	p.pendingRequests.Add(-1)
}

// ClearLastRequest drops the record of the most recently dispatched
// batch. Called once that batch's response has been durably committed
// (see the Save Path's progress-commit ordering).
func (p *RequestPlanner) ClearLastRequest() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRequest = nil
}

// Reset discards all in-memory planner state: the last-request slot,
// the in-flight counter, and the depth high-water mark. Used when the
// Sync Orchestrator starts a session against a different root or
// detects an unfinished prior session.
func (p *RequestPlanner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRequest = nil
	p.maxStateLevel = 0
	p.pendingRequests.Store(0)
}

// ChildPriority computes the dispatch priority for a newly-discovered
// child of parent. A child of a non-State parent always gets priority
// 0. The formula is preserved verbatim from the reference design: it
// mixes ratios and raw depth, biasing dispatch toward deeper items
// (stronger depth-first search) while still cycling shallow work so
// the queue does not starve.
func (p *RequestPlanner) ChildPriority(parent SyncItem) float32 {
	if parent.Kind != KindState {
		return 0
	}

	p.mu.Lock()
	if float64(parent.Level) > p.maxStateLevel {
		p.maxStateLevel = float64(parent.Level)
	}
	maxLevel := p.maxStateLevel
	p.mu.Unlock()

	if maxLevel == 0 {
		maxLevel = 1
	}

	depthRatio := float64(parent.Level) / maxLevel
	a := 1 - depthRatio
	b := float64(parent.Priority) - depthRatio
	if b > a {
		return float32(b)
	}
	return float32(a)
}

// PrepareRequests drains the Pending Queue into one or more Batches,
// honoring MaxPending and MaxBatchItems. If the previously dispatched
// batch was never acknowledged, its items are re-enqueued first with
// Missing set, bypassing dedup.
func (p *RequestPlanner) PrepareRequests() []Batch {
	p.mu.Lock()
	stale := p.lastRequest
	p.lastRequest = nil
	p.mu.Unlock()

	if stale != nil {
		for _, item := range stale.Items {
			item.Missing = true
			p.queue.Push(item)
		}
	}

	var batches []Batch
	for p.queue.Len() > 0 && int(p.pendingRequests.Load())+len(batches) < MaxPending {
		items := make([]SyncItem, 0, MaxBatchItems)
		for len(items) < MaxBatchItems {
			item, ok := p.queue.Pop()
			if !ok {
				break
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			break
		}
		batches = append(batches, Batch{Items: items})
	}

	if len(batches) > 0 {
		p.pendingRequests.Add(int32(len(batches)))
		p.mu.Lock()
		last := batches[len(batches)-1]
		p.lastRequest = &last
		p.mu.Unlock()
	}
	return batches
}
