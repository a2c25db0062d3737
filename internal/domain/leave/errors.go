package leave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrLeaveTypeNotFound    = errors.New("leave type not found")
	ErrPolicyNotFound       = errors.New("no applicable leave policy found")
	ErrBalanceNotFound      = errors.New("leave balance not found")
	ErrLeaveRequestNotFound = errors.New("leave request not found")
	ErrCommentNotFound      = errors.New("comment not found")

	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrNotEligible         = errors.New("user not eligible for leave policy")
	ErrLeaveOverlap        = errors.New("leave request overlaps an existing request")
)

// InsufficientBalanceError is raised at the reservation point when available
// days cannot cover the request.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
	LeaveType string
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: available %s, requested %s",
		e.LeaveType, e.Available.String(), e.Requested.String())
}

func (e InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// EligibilityError carries the criteria the user failed under the resolved
// policy.
type EligibilityError struct {
	PolicyName string
	Reason     string
	Criteria   []string
}

func (e EligibilityError) Error() string {
	msg := fmt.Sprintf("not eligible under policy %q: %s", e.PolicyName, e.Reason)
	if len(e.Criteria) > 0 {
		msg += " (" + strings.Join(e.Criteria, "; ") + ")"
	}
	return msg
}

func (e EligibilityError) Unwrap() error { return ErrNotEligible }

// OverlapError lists the request numbers whose windows intersect the one
// being created.
type OverlapError struct {
	RequestNumbers []string
}

func (e OverlapError) Error() string {
	return "leave request overlaps: " + strings.Join(e.RequestNumbers, ", ")
}

func (e OverlapError) Unwrap() error { return ErrLeaveOverlap }
