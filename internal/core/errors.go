package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every ledger operation. Callers match with
// errors.Is; the wrapped message names the rule that was violated.
var (
	ErrValidation = errors.New("validation error")
	ErrReference  = errors.New("reference error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Invalid reports malformed or out-of-range input.
func Invalid(format string, args ...any) error {
	return wrapKind(ErrValidation, format, args...)
}

// BadReference reports a foreign key pointing at a missing or inactive row.
func BadReference(format string, args ...any) error {
	return wrapKind(ErrReference, format, args...)
}

// NotFound reports an entity missing within the caller's workspace scope.
func NotFound(format string, args ...any) error {
	return wrapKind(ErrNotFound, format, args...)
}

// Conflict reports a state that must be undone before retrying.
func Conflict(format string, args ...any) error {
	return wrapKind(ErrConflict, format, args...)
}

func wrapKind(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// ErrorType returns the log/API label of a taxonomy error.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrReference):
		return "reference_error"
	case errors.Is(err, ErrNotFound):
		return "not_found_error"
	case errors.Is(err, ErrConflict):
		return "conflict_error"
	default:
		return "internal_error"
	}
}
