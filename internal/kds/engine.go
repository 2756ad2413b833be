package kds

import (
	"context"
	"fmt"
	"sync"
	"time"

	aqm "github.com/appetiteclub/apt"
	"github.com/chopline/kds/internal/enums/orderstatus"
)

// Announcer receives orders whose bucket just became NEW-stage. Dispatch is
// fire-and-forget; announcement failures never reach board state.
type Announcer interface {
	Announce(o Order)
	Reset()
}

// FeedRunner is the change-feed consumer lifecycle the engine drives on
// attach and detach.
type FeedRunner interface {
	Start(ctx context.Context) error
	Stop() error
}

// Engine is the synchronization facade: the single public surface over the
// partition board, the change feed and the optimistic mutation coordinator.
// It exclusively owns the Board; the feed consumer and local transitions are
// its only two producers.
type Engine struct {
	// mu serializes the two producers so board and pending-mutation state
	// never interleave a read-modify-write on the same id. Renders read the
	// board concurrently through copy-on-read snapshots.
	mu       sync.Mutex
	board    *Board
	repo     OrderRepository
	logger   aqm.Logger
	now      func() time.Time
	pendings map[OrderID]pendingMutation
	seq      uint64
	attached bool

	announcer Announcer
	feed      FeedRunner
	onChange  func()
}

func NewEngine(repo OrderRepository, logger aqm.Logger) *Engine {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Engine{
		board:    NewBoard(),
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		pendings: make(map[OrderID]pendingMutation),
	}
}

// SetAnnouncer sets the announcement orchestrator (called after initialization)
func (e *Engine) SetAnnouncer(a Announcer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.announcer = a
}

// SetFeed sets the change feed consumer (called after initialization)
func (e *Engine) SetFeed(f FeedRunner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feed = f
}

// OnChange registers a hook fired after every successful bucket mutation,
// for re-render. Set it before Attach; the hook must not call back into
// mutating engine operations.
func (e *Engine) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Attach resynchronizes the board from the backing store and starts the
// change feed consumer. Announcement rotation state resets on re-attachment.
func (e *Engine) Attach(ctx context.Context) error {
	e.mu.Lock()
	if e.attached {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := e.Resync(ctx); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	e.mu.Lock()
	feed := e.feed
	announcer := e.announcer
	e.mu.Unlock()

	if announcer != nil {
		announcer.Reset()
	}
	if feed != nil {
		if err := feed.Start(ctx); err != nil {
			return fmt.Errorf("attach: %w", err)
		}
	}

	e.mu.Lock()
	e.attached = true
	e.mu.Unlock()
	return nil
}

// Detach unsubscribes from the change feed and discards outstanding pending
// mutations. In-flight backing-store writes may still complete; their results
// are ignored.
func (e *Engine) Detach(ctx context.Context) error {
	e.mu.Lock()
	feed := e.feed
	e.pendings = make(map[OrderID]pendingMutation)
	e.attached = false
	e.mu.Unlock()

	if feed != nil {
		if err := feed.Stop(); err != nil {
			return fmt.Errorf("detach: %w", err)
		}
	}
	return nil
}

// Resync discards all buckets and replaces them with a fresh bulk fetch from
// the backing store. Missed feed events are undetectable from the feed alone,
// so this is the only recovery path after a disconnect.
func (e *Engine) Resync(ctx context.Context) error {
	orders, err := e.repo.List(ctx, OrderFilter{})
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}

	for i := range orders {
		orders[i].Status = orderstatus.Normalize(orders[i].Status).Code()
	}

	e.mu.Lock()
	e.board.Reset(orders)
	e.pendings = make(map[OrderID]pendingMutation)
	e.notifyChangeLocked()
	e.mu.Unlock()

	e.logger.Infof("board resynchronized: %d orders", len(orders))
	return nil
}

// ApplyUpsert applies an authoritative INSERT or UPDATE from the change feed.
// The event wins over any outstanding pending mutation for the same id, which
// is discarded without rollback. Duplicate delivery of an identical snapshot
// is a no-op.
func (e *Engine) ApplyUpsert(o Order) {
	e.mu.Lock()
	delete(e.pendings, o.ID)
	res := e.board.Upsert(o)
	if !res.Noop {
		e.notifyChangeLocked()
	}
	announcer := e.announcer
	e.mu.Unlock()

	if res.EnteredNew && announcer != nil {
		announcer.Announce(o)
	}
}

// ApplyDelete applies an authoritative DELETE from the change feed.
func (e *Engine) ApplyDelete(id OrderID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.pendings, id)
	if e.board.Remove(id) {
		e.notifyChangeLocked()
	}
}

// Bucket returns an immutable ordered view of a stage bucket for rendering.
func (e *Engine) Bucket(stage orderstatus.Stage) []Order {
	return e.board.Snapshot(stage)
}

// Order returns the current snapshot for an id.
func (e *Engine) Order(id OrderID) (Order, bool) {
	return e.board.Get(id)
}

// ActiveCount returns the number of orders in the NEW and ACTIVE buckets.
func (e *Engine) ActiveCount() int {
	return e.board.ActiveCount()
}

func (e *Engine) notifyChangeLocked() {
	if e.onChange != nil {
		e.onChange()
	}
}
