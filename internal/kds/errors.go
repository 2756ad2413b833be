package kds

import "errors"

var (
	// ErrUnknownOrder is returned when a transition targets an id the board
	// does not know.
	ErrUnknownOrder = errors.New("order not found")

	// ErrTransitionRejected is returned when a requested status change
	// violates the lifecycle stage ordering. No state is changed.
	ErrTransitionRejected = errors.New("status transition rejected")

	// ErrWriteFailed is returned when the backing-store write for an
	// optimistically applied transition failed. The board has been rolled
	// back to the pre-transition snapshot; callers may retry by re-issuing
	// the transition.
	ErrWriteFailed = errors.New("backing store write failed")
)
