package errors

import (
	"errors"
	"fmt"
	"strings"
)

// --- streamhook Core Error Types ---

// ConfigError represents an error encountered while loading, parsing or
// persisting a streamhook configuration document.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that an event action or a configuration document
// failed validation. Reasons holds the individual human-readable findings,
// which callers may show as a list.
type ValidationError struct {
	Message string
	Reasons []string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

// NewValidationFailure builds a ValidationError from a list of reasons.
func NewValidationFailure(subject string, reasons []string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("%s is invalid: %s", subject, strings.Join(reasons, "; ")),
		Reasons: append([]string(nil), reasons...),
	}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// IndexOutOfRangeError signals an index outside the action collection or a
// command group.
type IndexOutOfRangeError struct {
	Target string // e.g. "event actions", "startup commands"
	Index  int
	Length int
}

func NewIndexOutOfRangeError(target string, index, length int) *IndexOutOfRangeError {
	return &IndexOutOfRangeError{Target: target, Index: index, Length: length}
}
func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for %s (length %d)", e.Index, e.Target, e.Length)
}

// InvalidTransitionError is returned when an operation is attempted in an
// editor state that forbids it, e.g. Save while idle.
type InvalidTransitionError struct {
	Operation string
	State     string
}

func NewInvalidTransitionError(operation, state string) *InvalidTransitionError {
	return &InvalidTransitionError{Operation: operation, State: state}
}
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("operation '%s' is not allowed in state %s", e.Operation, e.State)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsIndexOutOfRange reports whether err is or wraps an IndexOutOfRangeError.
func IsIndexOutOfRange(err error) bool {
	var iErr *IndexOutOfRangeError
	return errors.As(err, &iErr)
}

// IsInvalidTransition reports whether err is or wraps an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var tErr *InvalidTransitionError
	return errors.As(err, &tErr)
}
