package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Structured errors below match these through errors.Is.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrAccountDeactivated      = errors.New("account deactivated")
	ErrSelfDeactivationBlocked = errors.New("cannot deactivate the signed-in user")
	ErrPersistence             = errors.New("persistence failure")
	ErrStaleWrite              = errors.New("stale write")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrInvalidInput.
func (e ValidationError) Is(target error) bool { return target == ErrInvalidInput }
