package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRoomNotFound            = errors.New("room not found")
	ErrRoomNotAvailable        = errors.New("room not available for the selected dates")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrNotFoundOrUnauthorized  = errors.New("booking not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrConstraintViolation     = errors.New("constraint violation")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.fields[field] = append(e.fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return len(e.fields) == 0
}

func (e *ValidationError) Fields() map[string][]string {
	return e.fields
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError returns the ValidationError in err's chain, or nil.
func AsValidationError(err error) *ValidationError {
	var v *ValidationError
	if errors.As(err, &v) {
		return v
	}
	return nil
}

// Invalid builds a single-field ValidationError.
func Invalid(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}
