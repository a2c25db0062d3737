package user

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user is not active")
	ErrDuplicateEntity = errors.New("duplicate entity")
)

// DuplicateEntityError reports a uniqueness violation on create, carrying the
// field that collided.
type DuplicateEntityError struct {
	Field string
	Value string
}

func (e DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Field, e.Value)
}

func (e DuplicateEntityError) Unwrap() error { return ErrDuplicateEntity }
