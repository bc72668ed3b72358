package tracker

import "errors"

var (
	// ErrValidation means a required registration or report field is missing
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means no active driver matches the id or identity
	ErrNotFound = errors.New("driver not found")

	// ErrDuplicateIdentity means an active driver already uses the phone + plate pair
	ErrDuplicateIdentity = errors.New("driver with this phone and vehicle plate already registered")
)
