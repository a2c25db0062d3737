package user

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TxRunner scopes one orchestrated operation in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine manages employee records: creation with uniqueness checks and
// password hashing, and manager assignment.
type Engine struct {
	tx    TxRunner
	users user.Repository
}

func NewEngine(tx TxRunner, userRepository user.Repository) *Engine {
	return &Engine{tx: tx, users: userRepository}
}

// Created is the result of CreateUser.
type Created struct {
	User user.User
}

// CreateUser hashes the password with bcrypt and enforces uniqueness of
// email and employee id within the organization before inserting.
func (e *Engine) CreateUser(ctx context.Context, input user.CreateUserRequest, actx audit.Context) (*Created, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	organizationID, err := parseUUIDField(input.OrganizationID, "organization_id")
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var created Created
	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := e.users.GetByEmail(ctx, organizationID, input.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return user.DuplicateEntityError{Field: "email", Value: input.Email}
		}

		existing, err = e.users.GetByEmployeeID(ctx, organizationID, input.EmployeeID)
		if err != nil {
			return err
		}
		if existing != nil {
			return user.DuplicateEntityError{Field: "employee_id", Value: input.EmployeeID}
		}

		u := user.User{
			OrganizationID: organizationID,
			EmployeeID:     input.EmployeeID,
			Email:          input.Email,
			FullName:       input.FullName,
			PasswordHash:   string(hash),
			Role:           user.Role(input.Role),
			Status:         user.StatusActive,
			EmploymentType: input.EmploymentType,
		}
		if input.HireDate != nil {
			hireDate, _ := time.Parse("2006-01-02", *input.HireDate)
			u.HireDate = &hireDate
		}
		if input.ManagerID != nil {
			managerID, err := parseUUIDField(*input.ManagerID, "manager_id")
			if err != nil {
				return err
			}
			if _, err := e.users.GetRequired(ctx, managerID); err != nil {
				return err
			}
			u.ManagerID = &managerID
		}

		if err := e.users.Create(ctx, &u, actx); err != nil {
			return err
		}
		created = Created{User: u}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SetManager points the user at a new manager, or clears it with nil.
func (e *Engine) SetManager(ctx context.Context, userID uuid.UUID, managerID *uuid.UUID, actx audit.Context) (*user.User, error) {
	var updated *user.User
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := e.users.GetRequired(ctx, userID); err != nil {
			return err
		}
		if managerID != nil {
			if *managerID == userID {
				return validator.ValidationErrors{{
					Field:   "manager_id",
					Message: "a user cannot be their own manager",
				}}
			}
			if _, err := e.users.GetRequired(ctx, *managerID); err != nil {
				return err
			}
		}

		var err error
		updated, err = e.users.UpdateFields(ctx, userID,
			map[string]any{"manager_id": managerID},
			audit.ActionUpdate, "manager assigned", actx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetUser is the read-only lookup used by controllers.
func (e *Engine) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return e.users.GetRequired(ctx, id)
}

func (e *Engine) ListUsers(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]user.User, error) {
	return e.users.List(ctx, organizationID, limit, offset)
}

func parseUUIDField(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, validator.ValidationErrors{{
			Field:   field,
			Message: field + " must be a valid UUID",
		}}
	}
	return id, nil
}
