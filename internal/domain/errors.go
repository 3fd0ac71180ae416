// Package domain defines core types, interfaces, and errors for group membership.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, caller-facing classification of a domain error.
type ErrorKind string

// Error kinds surfaced to facade callers.
const (
	KindNotAuthenticated ErrorKind = "NOT_AUTHENTICATED"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindForbidden        ErrorKind = "FORBIDDEN"
	KindGroupReadOnly    ErrorKind = "GROUP_READ_ONLY"
	KindCapacityReached  ErrorKind = "CAPACITY_REACHED"
	KindLockedAfterStart ErrorKind = "LOCKED_AFTER_START"
	KindInvalidTarget    ErrorKind = "INVALID_TARGET"
	KindBadTransition    ErrorKind = "BAD_TRANSITION"
	KindInvalidArgument  ErrorKind = "INVALID_ARGUMENT"
	KindConflict         ErrorKind = "CONFLICT"
	KindInternal         ErrorKind = "INTERNAL"
)

// KindedError is implemented by every domain error.
type KindedError interface {
	error
	Kind() ErrorKind
	OffendingField() string
}

// UnauthenticatedError indicates the caller identity is missing.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string          { return e.Message }
func (e *UnauthenticatedError) Kind() ErrorKind        { return KindNotAuthenticated }
func (e *UnauthenticatedError) OffendingField() string { return "principal" }

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Field   string
	Message string
}

func (e *NotFoundError) Error() string          { return e.Message }
func (e *NotFoundError) Kind() ErrorKind        { return KindNotFound }
func (e *NotFoundError) OffendingField() string { return e.Field }

// AccessDeniedError indicates the caller lacks the role for a transition.
type AccessDeniedError struct {
	Field   string
	Message string
}

func (e *AccessDeniedError) Error() string          { return e.Message }
func (e *AccessDeniedError) Kind() ErrorKind        { return KindForbidden }
func (e *AccessDeniedError) OffendingField() string { return e.Field }

// ReadOnlyError indicates the group is canceled or deleted.
type ReadOnlyError struct {
	Field   string
	Message string
}

func (e *ReadOnlyError) Error() string          { return e.Message }
func (e *ReadOnlyError) Kind() ErrorKind        { return KindGroupReadOnly }
func (e *ReadOnlyError) OffendingField() string { return e.Field }

// CapacityReachedError indicates the capacity gate rejected a JOINED-producing transition.
type CapacityReachedError struct {
	Max     int
	Message string
}

func (e *CapacityReachedError) Error() string          { return e.Message }
func (e *CapacityReachedError) Kind() ErrorKind        { return KindCapacityReached }
func (e *CapacityReachedError) OffendingField() string { return "maxParticipants" }

// LockedAfterStartError indicates the time gate rejected a JOINED-producing transition.
type LockedAfterStartError struct {
	Message string
}

func (e *LockedAfterStartError) Error() string          { return e.Message }
func (e *LockedAfterStartError) Kind() ErrorKind        { return KindLockedAfterStart }
func (e *LockedAfterStartError) OffendingField() string { return "startAt" }

// InvalidTargetError indicates a transition attempted against the group owner.
type InvalidTargetError struct {
	Field   string
	Message string
}

func (e *InvalidTargetError) Error() string          { return e.Message }
func (e *InvalidTargetError) Kind() ErrorKind        { return KindInvalidTarget }
func (e *InvalidTargetError) OffendingField() string { return e.Field }

// BadTransitionError indicates no edge exists from the current status.
type BadTransitionError struct {
	From    Status
	Event   Transition
	Message string
}

func (e *BadTransitionError) Error() string          { return e.Message }
func (e *BadTransitionError) Kind() ErrorKind        { return KindBadTransition }
func (e *BadTransitionError) OffendingField() string { return "status" }

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string          { return e.Message }
func (e *ValidationError) Kind() ErrorKind        { return KindInvalidArgument }
func (e *ValidationError) OffendingField() string { return e.Field }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string          { return e.Message }
func (e *ConflictError) Kind() ErrorKind        { return KindConflict }
func (e *ConflictError) OffendingField() string { return "" }

// TransientConflictError marks a store-level serialization failure. The
// transition engine retries the whole unit of work; it never reaches callers.
type TransientConflictError struct {
	Err error
}

func (e *TransientConflictError) Error() string { return "transient write conflict: " + e.Err.Error() }
func (e *TransientConflictError) Unwrap() error { return e.Err }

// ErrUnauthenticated creates an UnauthenticatedError.
func ErrUnauthenticated() *UnauthenticatedError {
	return &UnauthenticatedError{Message: "authentication required"}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(field, format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(field, format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrReadOnly creates a ReadOnlyError naming the flag that froze the group.
func ErrReadOnly(field string) *ReadOnlyError {
	return &ReadOnlyError{Field: field, Message: "group is read-only: " + field + " is set"}
}

// ErrCapacityReached creates a CapacityReachedError.
func ErrCapacityReached(limit int) *CapacityReachedError {
	return &CapacityReachedError{Max: limit, Message: fmt.Sprintf("group is full (max %d participants)", limit)}
}

// ErrLockedAfterStart creates a LockedAfterStartError.
func ErrLockedAfterStart() *LockedAfterStartError {
	return &LockedAfterStartError{Message: "group has started and does not allow late joins"}
}

// ErrInvalidTarget creates an InvalidTargetError with a formatted message.
func ErrInvalidTarget(field, format string, args ...interface{}) *InvalidTargetError {
	return &InvalidTargetError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrBadTransition creates a BadTransitionError.
func ErrBadTransition(from Status, event Transition) *BadTransitionError {
	return &BadTransitionError{
		From:    from,
		Event:   event,
		Message: fmt.Sprintf("cannot apply %s to a membership in status %s", event, from),
	}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind of err, looking through wrapping.
// Errors that are not domain errors are INTERNAL.
func KindOf(err error) ErrorKind {
	var k KindedError
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err is a retryable store conflict.
func IsTransient(err error) bool {
	var tc *TransientConflictError
	return errors.As(err, &tc)
}
