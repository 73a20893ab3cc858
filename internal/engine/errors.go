package engine

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by commands submitted after the coordinator stopped.
var ErrClosed = errors.New("engine: coordinator closed")

// ErrorCode categorizes coordinator errors.
type ErrorCode string

const (
	// CodeValidation means the input was rejected before any state changed.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeWriteFailed means local state changed but the store write failed.
	// The local change is not rolled back.
	CodeWriteFailed ErrorCode = "WRITE_FAILED"

	// CodeSubscription means a store listener failed. Prior state is kept.
	CodeSubscription ErrorCode = "SUBSCRIPTION"

	// CodeNotFound means the referenced item, transaction or date is unknown.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeClosed means the coordinator is not running.
	CodeClosed ErrorCode = "CLOSED"
)

// Error is a categorized coordinator failure.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(op, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(op, what, id string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsWriteFailed reports whether err is a failed store write.
func IsWriteFailed(err error) bool { return hasCode(err, CodeWriteFailed) }

// IsNotFound reports whether err names an unknown record.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsSubscription reports whether err is a listener failure.
func IsSubscription(err error) bool { return hasCode(err, CodeSubscription) }

// IsClosed reports whether err means the coordinator was not running.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || hasCode(err, CodeClosed)
}
