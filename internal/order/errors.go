package order

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotFound        = errors.New("order not found")
	ErrNotCancellable  = errors.New("order cannot be cancelled")
)
