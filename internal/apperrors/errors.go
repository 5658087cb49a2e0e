// Package apperrors defines the error kinds the session core returns to its
// callers. Handlers map each kind to an HTTP status; services never swallow one.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing caller input. Not retryable.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func Validation(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// PreconditionError reports a failed state-machine guard. The caller may retry
// once the precondition is met.
type PreconditionError struct {
	msg string
}

func (e *PreconditionError) Error() string { return e.msg }

func Precondition(format string, args ...interface{}) error {
	return &PreconditionError{msg: fmt.Sprintf(format, args...)}
}

func IsPrecondition(err error) bool {
	var e *PreconditionError
	return errors.As(err, &e)
}

// LockedError reports a mutation attempted on content that is no longer
// editable. Not retryable.
type LockedError struct {
	msg string
}

func (e *LockedError) Error() string { return e.msg }

func Locked(format string, args ...interface{}) error {
	return &LockedError{msg: fmt.Sprintf(format, args...)}
}

func IsLocked(err error) bool {
	var e *LockedError
	return errors.As(err, &e)
}

// ConflictError reports a lost concurrent-transition race. Safe to retry once
// with freshly read state.
type ConflictError struct {
	msg string
}

func (e *ConflictError) Error() string { return e.msg }

func Conflict(format string, args ...interface{}) error {
	return &ConflictError{msg: fmt.Sprintf(format, args...)}
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// NotFoundError reports an unknown session, block, question, or participant
// reference. Fatal for the request.
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string { return e.msg }

func NotFound(format string, args ...interface{}) error {
	return &NotFoundError{msg: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
