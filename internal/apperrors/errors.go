package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates an attempt to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the operation conflicts with the current state of a
// resource, e.g. a version that is no longer open or an account deactivated
// after validation. Callers retry with fresh reads.
var ErrConflict = errors.New("conflicting state")

// ErrInternal hides adapter internals (driver codes, SQL state) from callers.
var ErrInternal = errors.New("internal error")

// AppError carries a status-like code alongside the wrapped cause. Adapters
// use it to attach context without leaking storage detail past the port.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError wraps err with a code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }
