package workflow

import (
	"errors"
	"fmt"
)

// Error is a workflow step failure. Its Code decides how the workflow
// recovers.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is shown to the requester.
	Message string

	// Available is the free quantity reported with ErrCodeCapacity.
	Available int

	// Err is the underlying cause, if any.
	Err error

	alert bool
}

// ErrorCode categorizes workflow errors.
type ErrorCode string

const (
	// ErrCodeValidation: bad input. The step is re-prompted and the session
	// keeps its state.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound: a selected category, item or reservation is gone.
	// The workflow ends without writing.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeCapacity: not enough free units. The reservation workflow
	// returns to quantity entry.
	ErrCodeCapacity ErrorCode = "CAPACITY"

	// ErrCodePersistence: the store failed. The workflow ends with a
	// generic reply.
	ErrCodePersistence ErrorCode = "PERSISTENCE"

	// ErrCodeStaleBlob: an item's image could not be loaded. The detail is
	// shown without it.
	ErrCodeStaleBlob ErrorCode = "STALE_BLOB"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func codeOf(err error) ErrorCode {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool { return codeOf(err) == ErrCodeValidation }

// IsNotFoundError reports whether err is a not-found error.
func IsNotFoundError(err error) bool { return codeOf(err) == ErrCodeNotFound }

// IsCapacityError reports whether err is a capacity error.
func IsCapacityError(err error) bool { return codeOf(err) == ErrCodeCapacity }

// IsPersistenceError reports whether err is a persistence error.
func IsPersistenceError(err error) bool { return codeOf(err) == ErrCodePersistence }

// IsStaleBlobError reports whether err is a stale image error.
func IsStaleBlobError(err error) bool { return codeOf(err) == ErrCodeStaleBlob }

func validationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// alertError is a validation error shown as a popup notice.
func alertError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message, alert: true}
}

func notFoundError(message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message}
}

func capacityError(available int) *Error {
	return &Error{
		Code:      ErrCodeCapacity,
		Message:   fmt.Sprintf("not enough stock for the selected period, %d available", available),
		Available: available,
	}
}

func persistenceError(err error) *Error {
	return &Error{Code: ErrCodePersistence, Message: "storage failure", Err: err}
}

func staleBlobError(err error) *Error {
	return &Error{Code: ErrCodeStaleBlob, Message: "item image unavailable", Err: err}
}
