package postgresql

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errRollback aborts RunInTx after the assertions so integration tests
// leave no rows behind.
var errRollback = errors.New("rollback test transaction")

func testDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	auditRepo := NewAuditLogRepository(db)
	users := NewUserRepository(db, auditRepo)
	actx := audit.SystemContext(audit.ActorSystem)

	err := db.RunInTx(context.Background(), func(ctx context.Context) error {
		u := user.User{
			OrganizationID: uuid.New(),
			EmployeeID:     "E-9001",
			Email:          "integration@example.com",
			FullName:       "Integration Test",
			PasswordHash:   "x",
			Role:           user.RoleEmployee,
			Status:         user.StatusActive,
			EmploymentType: "full_time",
		}
		require.NoError(t, users.Create(ctx, &u, actx))
		require.NotEqual(t, uuid.Nil, u.ID)

		got, err := users.GetRequired(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)

		byEmail, err := users.GetByEmail(ctx, u.OrganizationID, u.Email)
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, u.ID, byEmail.ID)

		updated, err := users.UpdateFields(ctx, u.ID,
			map[string]any{"status": user.StatusSuspended},
			audit.ActionStatusChange, "suspended in test", actx)
		require.NoError(t, err)
		assert.Equal(t, user.StatusSuspended, updated.Status)

		require.NoError(t, users.SoftDelete(ctx, u.ID, actx))
		_, err = users.GetRequired(ctx, u.ID)
		assert.ErrorIs(t, err, user.ErrUserNotFound)

		logs, err := auditRepo.ListForEntity(ctx, "user", u.ID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, logs, 3)

		return errRollback
	})
	assert.ErrorIs(t, err, errRollback)
}
