package kds

import (
	"sync"

	"github.com/chopline/kds/internal/enums/orderstatus"
)

// Board is the partition store: the current set of orders split into one
// ordered bucket per lifecycle stage. An order id appears in exactly one
// bucket, keyed by the stage of its normalized status. Writes are serialized
// by the engine; reads hand out value copies so callers can never corrupt
// board state.
type Board struct {
	mu sync.RWMutex
	// orders indexed by order id
	orders map[OrderID]Order
	// bucket membership by stage, most-recent-first
	buckets map[orderstatus.Stage][]OrderID
}

// UpsertResult describes what an upsert did to the board.
type UpsertResult struct {
	Created bool
	Moved   bool
	Noop    bool
	Stage   orderstatus.Stage
	// EnteredNew is set when the order's bucket became NEW-stage for the
	// first time in this snapshot's lineage: a genuinely new actionable
	// order, not a re-normalization of one already on the NEW bucket.
	EnteredNew bool
}

func NewBoard() *Board {
	return &Board{
		orders:  make(map[OrderID]Order),
		buckets: make(map[orderstatus.Stage][]OrderID),
	}
}

// Upsert inserts or replaces the order with a matching id. If the order is
// present in a different bucket it is atomically removed from the old bucket
// and placed at the head of the new one. Idempotent for identical snapshots.
func (b *Board) Upsert(o Order) UpsertResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	stage := o.Stage()
	old, exists := b.orders[o.ID]
	if exists && old == o {
		return UpsertResult{Noop: true, Stage: stage}
	}

	res := UpsertResult{Stage: stage}
	if !exists {
		res.Created = true
		b.orders[o.ID] = o
		b.buckets[stage] = prepend(b.buckets[stage], o.ID)
		res.EnteredNew = stage == orderstatus.StageNew
		return res
	}

	oldStage := old.Stage()
	b.orders[o.ID] = o
	if oldStage == stage {
		// bucket position kept on same-stage replacement
		return res
	}

	b.buckets[oldStage] = drop(b.buckets[oldStage], o.ID)
	b.buckets[stage] = prepend(b.buckets[stage], o.ID)
	res.Moved = true
	res.EnteredNew = stage == orderstatus.StageNew
	return res
}

// Remove deletes the order from whichever bucket holds it. No-op if absent.
func (b *Board) Remove(id OrderID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, exists := b.orders[id]
	if !exists {
		return false
	}
	b.buckets[o.Stage()] = drop(b.buckets[o.Stage()], id)
	delete(b.orders, id)
	return true
}

// Snapshot returns an ordered copy of a bucket for rendering. The returned
// slice and its orders are detached from board state.
func (b *Board) Snapshot(stage orderstatus.Stage) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := b.buckets[stage]
	result := make([]Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := b.orders[id]; ok {
			result = append(result, o)
		}
	}
	return result
}

// Get retrieves a single order snapshot by id.
func (b *Board) Get(id OrderID) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

// Reset discards all buckets and replaces them with the given orders,
// preserving the given ordering within each bucket. Used on full
// resynchronization after the change feed reconnects.
func (b *Board) Reset(orders []Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders = make(map[OrderID]Order, len(orders))
	b.buckets = make(map[orderstatus.Stage][]OrderID)
	for _, o := range orders {
		if _, dup := b.orders[o.ID]; dup {
			continue
		}
		b.orders[o.ID] = o
		b.buckets[o.Stage()] = append(b.buckets[o.Stage()], o.ID)
	}
}

// Count returns the number of orders on the board.
func (b *Board) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// ActiveCount returns the number of orders in the NEW and ACTIVE buckets,
// the board's measure of current kitchen load.
func (b *Board) ActiveCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buckets[orderstatus.StageNew]) + len(b.buckets[orderstatus.StageActive])
}

func prepend(ids []OrderID, id OrderID) []OrderID {
	out := make([]OrderID, 0, len(ids)+1)
	out = append(out, id)
	return append(out, ids...)
}

func drop(ids []OrderID, id OrderID) []OrderID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
