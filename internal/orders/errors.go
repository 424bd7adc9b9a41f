package orders

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTrackingRequired guards the Shipped invariant: an order may only
	// become Shipped once a non-empty tracking number is recorded.
	ErrTrackingRequired = errors.New("tracking number required for Shipped status")
)
