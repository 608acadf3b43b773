package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels identifying the error kinds surfaced by lifecycle operations.
// Typed errors below match them through errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
)

// ErrorKind classifies an error for transport layers.
type ErrorKind string

// Error kinds mapped by callers to status codes.
const (
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindBadRequest ErrorKind = "bad_request"
	KindForbidden  ErrorKind = "forbidden"
	KindInternal   ErrorKind = "internal"
)

// KindOf returns the kind of err, or KindInternal when it is not a domain error.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", EntityLabel(e.Entity), e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(entity EntityType, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a stale concurrency stamp or a duplicate logical key.
type ConflictError struct {
	Entity   EntityType
	ID       string
	Expected time.Time
	Current  time.Time
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s conflict: %s", EntityLabel(e.Entity), e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %s was modified concurrently (expected %s, current %s)",
		EntityLabel(e.Entity), e.ID, e.Expected.Format(time.RFC3339Nano), e.Current.Format(time.RFC3339Nano))
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NewStaleWriteError builds a ConflictError for a concurrency stamp mismatch.
func NewStaleWriteError(entity EntityType, id string, expected, current time.Time) error {
	return &ConflictError{Entity: entity, ID: id, Expected: expected, Current: current}
}

// NewDuplicateError builds a ConflictError for a duplicate logical key.
func NewDuplicateError(entity EntityType, id, reason string) error {
	return &ConflictError{Entity: entity, ID: id, Reason: reason}
}

// NewDependentsAttachedError builds a ConflictError for a physical delete that
// found live dependents at write time.
func NewDependentsAttachedError(entity EntityType, id string) error {
	return &ConflictError{Entity: entity, ID: id, Reason: "dependent records attached"}
}

// BadRequestError reports an illegal transition or malformed request.
type BadRequestError struct {
	Entity  EntityType
	ID      string
	From    string
	To      string
	Message string
}

func (e *BadRequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s status transition for %s: %s -> %s", EntityLabel(e.Entity), e.ID, e.From, e.To)
}

// Is matches ErrBadRequest.
func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

// NewInvalidTransitionError builds a BadRequestError naming both states.
func NewInvalidTransitionError(entity EntityType, id, from, to string) error {
	return &BadRequestError{Entity: entity, ID: id, From: from, To: to}
}

// NewBadRequestError builds a BadRequestError with a free-form message.
func NewBadRequestError(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports an operation disallowed by the entity's state.
type ForbiddenError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s %s: %s", EntityLabel(e.Entity), e.ID, e.Reason)
}

// Is matches ErrForbidden.
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// NewForbiddenError builds a ForbiddenError.
func NewForbiddenError(entity EntityType, id, reason string) error {
	return &ForbiddenError{Entity: entity, ID: id, Reason: reason}
}
