package kds

import (
	"context"
	"fmt"

	"github.com/chopline/kds/internal/enums/orderstatus"
)

// pendingMutation is an in-flight optimistic change awaiting backing-store
// confirmation. prior keeps the replaced snapshot for rollback; seq orders
// local requests so a stale write result can never clobber a newer state.
type pendingMutation struct {
	seq    uint64
	target orderstatus.Status
	prior  Order
}

// RequestTransition applies a locally-initiated status change to the board
// immediately, then issues the backing-store write and reconciles:
//
//   - write success confirms the optimistic snapshot (the store's own change
//     event reapplies it idempotently);
//   - write failure reverts to the prior snapshot and reports ErrWriteFailed;
//   - an authoritative feed event or a newer local request arriving first
//     supersedes this one, and the write result becomes a no-op.
//
// The board lock is not held across the store write, so feed events and
// transitions for other ids proceed independently.
func (e *Engine) RequestTransition(ctx context.Context, id OrderID, status string) error {
	target := orderstatus.ByName(status)
	if target == nil {
		return fmt.Errorf("%w: unknown status %q", ErrTransitionRejected, status)
	}

	e.mu.Lock()
	current, ok := e.board.Get(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrUnknownOrder, id)
	}

	from := orderstatus.Normalize(current.Status)
	if !orderstatus.CanTransition(from, *target) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrTransitionRejected, from.Code(), target.Code())
	}

	next := current.WithStatus(target.Code(), e.now())
	e.seq++
	seq := e.seq
	e.pendings[id] = pendingMutation{seq: seq, target: *target, prior: current}
	res := e.board.Upsert(next)
	e.notifyChangeLocked()
	announcer := e.announcer
	e.mu.Unlock()

	if res.EnteredNew && announcer != nil {
		announcer.Announce(next)
	}

	writeErr := e.repo.UpdateStatus(ctx, id, target.Code())

	e.mu.Lock()
	defer e.mu.Unlock()

	pending, outstanding := e.pendings[id]
	if !outstanding || pending.seq != seq {
		// Superseded by an authoritative event or a newer local request;
		// the store's view won, nothing to reconcile.
		return nil
	}
	delete(e.pendings, id)

	if writeErr != nil {
		e.board.Upsert(pending.prior)
		e.notifyChangeLocked()
		e.logger.Errorf("transition write failed for order %d, reverted to %s: %v", id, pending.prior.Status, writeErr)
		return fmt.Errorf("%w: %v", ErrWriteFailed, writeErr)
	}
	return nil
}
