package cart

import "errors"

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrLineNotFound       = errors.New("cart line not found")
	ErrProductUnavailable = errors.New("product not available")
	// ErrConflict reports a uniqueness violation on cart creation that survived a retry.
	ErrConflict = errors.New("cart persistence conflict")
)
