package models

import (
	"errors"
	"fmt"
)

// Domain error taxonomy shared by the stores and the HTTP layer.
//
// ErrNotFound covers both unknown and unowned ids so callers cannot probe
// for existence. ErrSlotUnavailable is an expected outcome under concurrent
// booking, not a server fault.
var (
	ErrNotFound          = errors.New("not found")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidTransition = errors.New("invalid transition")
)

// ValidationError rejects malformed input before any write, naming the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
