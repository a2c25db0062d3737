package audit

import (
	"context"

	"github.com/google/uuid"
)

// Entry is the input to Repository.Append. The repository assigns the row
// identifier and timestamp; callers never set them.
type Entry struct {
	Action     Action
	EntityType string
	EntityID   uuid.UUID

	OldValues Values
	NewValues Values
	Changes   map[string]Change

	Description string
	Extra       map[string]any
}

// Repository is the append-only audit log. Every mutation elsewhere in the
// system produces exactly one event through Append; nothing updates or
// deletes audit rows.
type Repository interface {
	Append(ctx context.Context, entry Entry, actx Context) (Log, error)
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]Log, error)
}

// Record emits a standard mutation event for an auditable entity, deriving
// entity type, entity id and the key-wise diff from the snapshots.
func Record(ctx context.Context, repo Repository, action Action, entity Auditable, old, new Values, actx Context, description string) error {
	_, err := repo.Append(ctx, Entry{
		Action:      action,
		EntityType:  entity.AuditEntityType(),
		EntityID:    entity.AuditEntityID(),
		OldValues:   old,
		NewValues:   new,
		Changes:     Diff(old, new),
		Description: description,
	}, actx)
	return err
}
