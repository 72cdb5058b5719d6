package compute

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by every *ValidationError of the same kind.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidRange = errors.New("invalid range")
)

// Kind classifies a validation failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindInvalidRange Kind = "invalid_range"
)

// ValidationError describes the first constraint an Input violated.
type ValidationError struct {
	Kind Kind
	// Field is the input field at fault ("ri", "ri_next", ...).
	Field string
	// Message is suitable for showing to the user as-is.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel for the error's kind.
func (e *ValidationError) Unwrap() error {
	if e.Kind == KindInvalidRange {
		return ErrInvalidRange
	}
	return ErrInvalidInput
}

func invalidInput(field string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidInput,
		Field:   field,
		Message: fmt.Sprintf("%s is required and must be a valid number", field),
	}
}

func invalidRange(field, msg string) *ValidationError {
	return &ValidationError{Kind: KindInvalidRange, Field: field, Message: msg}
}
