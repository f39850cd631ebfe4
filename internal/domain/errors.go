package domain

import "errors"

var (
	// ErrInvalidOrder rejects a malformed order form before any mutation.
	ErrInvalidOrder = errors.New("invalid order form")

	// ErrItemNotFound means at least one requested item is unknown to the
	// item service; the whole order is rejected, never a partial one.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientStock aborts order creation after the local rows have
	// been rolled back.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrCollaboratorUnavailable marks a failed mutating call to a remote
	// service. It is never swallowed: silent failure would leave the order,
	// pay and stock state disagreeing.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrOrderNotFound is returned for lookups of unknown order ids.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderAlreadyPaid aborts a cancellation that lost the race against
	// the paid path.
	ErrOrderAlreadyPaid = errors.New("order already paid")
)
