package domain

import "errors"

// Common errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("access forbidden: you don't own this resource")

	// ErrBadPhase is returned when a flow operation is invoked outside the
	// phase it is valid in.
	ErrBadPhase = errors.New("operation not valid in current import phase")
)
