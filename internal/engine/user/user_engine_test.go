package user

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/lms-backend-go/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newEngine(t *testing.T) (*Engine, user.Repository) {
	t.Helper()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	return NewEngine(store, users), users
}

func createInput(org uuid.UUID) user.CreateUserRequest {
	return user.CreateUserRequest{
		OrganizationID: org.String(),
		EmployeeID:     "EMP-0042",
		Email:          "ayu.lestari@example.com",
		FullName:       "Ayu Lestari",
		Password:       "s3cret-password",
		Role:           string(user.RoleEmployee),
		EmploymentType: "full_time",
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	e, _ := newEngine(t)
	org := uuid.New()
	actx := audit.SystemContext(audit.ActorSystem)

	created, err := e.CreateUser(context.Background(), createInput(org), actx)
	require.NoError(t, err)

	u := created.User
	assert.Equal(t, org, u.OrganizationID)
	assert.Equal(t, user.StatusActive, u.Status)
	assert.NotEqual(t, "s3cret-password", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-password")))
}

func TestCreateUserValidatesInput(t *testing.T) {
	e, _ := newEngine(t)
	actx := audit.SystemContext(audit.ActorSystem)

	input := createInput(uuid.New())
	input.Email = "not-an-email"
	input.Password = "short"

	_, err := e.CreateUser(context.Background(), input, actx)
	require.Error(t, err)

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := errs.ToMap()
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	e, _ := newEngine(t)
	org := uuid.New()
	actx := audit.SystemContext(audit.ActorSystem)

	_, err := e.CreateUser(context.Background(), createInput(org), actx)
	require.NoError(t, err)

	dup := createInput(org)
	dup.EmployeeID = "EMP-0043"
	_, err = e.CreateUser(context.Background(), dup, actx)

	var dupErr user.DuplicateEntityError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "email", dupErr.Field)
	assert.ErrorIs(t, err, user.ErrDuplicateEntity)
}

func TestCreateUserDuplicateEmployeeID(t *testing.T) {
	e, _ := newEngine(t)
	org := uuid.New()
	actx := audit.SystemContext(audit.ActorSystem)

	_, err := e.CreateUser(context.Background(), createInput(org), actx)
	require.NoError(t, err)

	dup := createInput(org)
	dup.Email = "budi.santoso@example.com"
	_, err = e.CreateUser(context.Background(), dup, actx)

	var dupErr user.DuplicateEntityError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "employee_id", dupErr.Field)
}

func TestCreateUserSameEmailOtherOrganization(t *testing.T) {
	e, _ := newEngine(t)
	actx := audit.SystemContext(audit.ActorSystem)

	_, err := e.CreateUser(context.Background(), createInput(uuid.New()), actx)
	require.NoError(t, err)

	// Uniqueness is scoped per organization.
	_, err = e.CreateUser(context.Background(), createInput(uuid.New()), actx)
	assert.NoError(t, err)
}

func TestCreateUserUnknownManager(t *testing.T) {
	e, _ := newEngine(t)
	actx := audit.SystemContext(audit.ActorSystem)

	missing := uuid.New().String()
	input := createInput(uuid.New())
	input.ManagerID = &missing

	_, err := e.CreateUser(context.Background(), input, actx)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestSetManager(t *testing.T) {
	e, users := newEngine(t)
	ctx := context.Background()
	org := uuid.New()
	actx := audit.SystemContext(audit.ActorSystem)

	employee, err := e.CreateUser(ctx, createInput(org), actx)
	require.NoError(t, err)

	mgrInput := createInput(org)
	mgrInput.EmployeeID = "EMP-0001"
	mgrInput.Email = "siti.rahma@example.com"
	mgrInput.Role = string(user.RoleManager)
	manager, err := e.CreateUser(ctx, mgrInput, actx)
	require.NoError(t, err)

	updated, err := e.SetManager(ctx, employee.User.ID, &manager.User.ID, actx)
	require.NoError(t, err)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, manager.User.ID, *updated.ManagerID)

	stored, err := users.GetRequired(ctx, employee.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ManagerID)

	// Clearing works with nil.
	updated, err = e.SetManager(ctx, employee.User.ID, nil, actx)
	require.NoError(t, err)
	assert.Nil(t, updated.ManagerID)
}

func TestSetManagerSelfFails(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	actx := audit.SystemContext(audit.ActorSystem)

	created, err := e.CreateUser(ctx, createInput(uuid.New()), actx)
	require.NoError(t, err)

	_, err = e.SetManager(ctx, created.User.ID, &created.User.ID, actx)

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.ToMap(), "manager_id")
}

func TestSetManagerUnknownUser(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.SetManager(context.Background(), uuid.New(), nil, audit.SystemContext(audit.ActorSystem))
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
