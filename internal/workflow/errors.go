package workflow

import (
	"fmt"
	"strings"
)

// ValidationError means a precondition failed before any mutation was
// attempted. Safe to retry after correction.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError means the actor lacks the permission a transition requires.
type ForbiddenError struct {
	Permission string
}

func (e *ForbiddenError) Error() string {
	return "missing permission " + e.Permission
}

// ConflictError means an optimistic-concurrency check failed: the entities it
// names changed since the caller last read them. Nothing was mutated; the
// caller must refresh and retry.
type ConflictError struct {
	EntityIDs []string
	Msg       string
}

func (e *ConflictError) Error() string {
	if len(e.EntityIDs) == 0 {
		return e.Msg
	}
	return e.Msg + ": " + strings.Join(e.EntityIDs, ", ")
}

// NotFoundError means a referenced entity id does not exist in the store at
// transaction time.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return e.Collection + " " + e.ID + " not found"
}

// InvariantError reports internal state that valid configuration should make
// impossible. It is checked rather than allowed to corrupt state.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Msg }

func invariantf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
