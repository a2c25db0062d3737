package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound = errors.New("no applicable workflow found")
	ErrStepNotFound     = errors.New("workflow step not found")
	ErrInvalidState     = errors.New("invalid workflow state")
	ErrApprovalDenied   = errors.New("approval denied")
)

// StateError reports an action attempted against the wrong current state.
type StateError struct {
	CurrentState    string
	AttemptedAction string
}

func (e StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.AttemptedAction, e.CurrentState)
}

func (e StateError) Unwrap() error { return ErrInvalidState }

// ApprovalError reports an actor acting on a step not assigned to them, or
// an owner-only action attempted by someone else.
type ApprovalError struct {
	Reason string
}

func (e ApprovalError) Error() string {
	return "approval denied: " + e.Reason
}

func (e ApprovalError) Unwrap() error { return ErrApprovalDenied }
