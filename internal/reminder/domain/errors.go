package domain

import "errors"

var (
	// ErrValidation is returned for malformed creation input; no state is created.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTimeFormat is returned when a local date or time does not parse.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrNotFound          = errors.New("reminder not found")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
