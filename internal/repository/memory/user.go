package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
	audit audit.Repository
}

func NewUserRepository(store *Store) user.Repository {
	return &userRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) GetRequired(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, organizationID uuid.UUID, email string) (*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if !u.IsDeleted && u.OrganizationID == organizationID && u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetByEmployeeID(ctx context.Context, organizationID uuid.UUID, employeeID string) (*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if !u.IsDeleted && u.OrganizationID == organizationID && u.EmployeeID == employeeID {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *userRepository) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []user.User
	for _, u := range s.users {
		if !u.IsDeleted && u.OrganizationID == organizationID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})

	return paginate(users, limit, offset), nil
}

func (r *userRepository) Count(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, u := range s.users {
		if !u.IsDeleted && u.OrganizationID == organizationID {
			total++
		}
	}
	return total, nil
}

func (r *userRepository) Create(ctx context.Context, u *user.User, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, u, nil, u.Snapshot(), actx, "user created")
}

func (r *userRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*user.User, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	if err := applyUserFields(&updated, fields); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.users[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *userRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	deleted := *old
	now := s.now()
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	deleted.UpdatedAt = now
	s.users[id] = deleted
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "user deleted")
}

func applyUserFields(u *user.User, fields map[string]any) error {
	for col, val := range fields {
		switch col {
		case "status":
			u.Status = user.Status(asFieldString(val))
		case "role":
			u.Role = user.Role(asFieldString(val))
		case "manager_id":
			u.ManagerID = asUUIDPtr(val)
		case "employment_type":
			u.EmploymentType = asFieldString(val)
		case "full_name":
			u.FullName = asFieldString(val)
		case "password_hash":
			u.PasswordHash = asFieldString(val)
		default:
			return errUnknownField(col)
		}
	}
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	limit = clampLimit(limit)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
