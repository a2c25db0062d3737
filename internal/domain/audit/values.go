package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Values is a JSON-safe snapshot of an entity's persisted attributes:
// identifiers as strings, timestamps as RFC 3339, decimals as float64,
// enums as their string value. Each audited entity enumerates its own
// attributes in Snapshot; there is no reflection.
type Values map[string]any

// Change records one differing key in a key-wise diff.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Auditable is implemented by every entity whose mutations are audited.
type Auditable interface {
	AuditEntityType() string
	AuditEntityID() uuid.UUID
	Snapshot() Values
}

// Diff computes the key-wise difference between two snapshots over keys
// present in either side. Returns nil when nothing changed or when either
// side is absent.
func Diff(old, new Values) map[string]Change {
	if old == nil || new == nil {
		return nil
	}

	changed := make(map[string]Change)
	for key, oldVal := range old {
		if newVal, ok := new[key]; !ok || !valueEqual(oldVal, newVal) {
			changed[key] = Change{Old: oldVal, New: newVal}
		}
	}
	for key, newVal := range new {
		if _, ok := old[key]; !ok {
			changed[key] = Change{Old: nil, New: newVal}
		}
	}

	if len(changed) == 0 {
		return nil
	}
	return changed
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	// Snapshots only hold comparable leaves (string, float64, bool, nil).
	return a == b
}

// Snapshot helpers. Entities call these from their Snapshot methods so the
// JSON encoding stays uniform across the codebase.

func UUIDValue(id uuid.UUID) any {
	return id.String()
}

func UUIDPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func TimeValue(t time.Time) any {
	return t.UTC().Format(time.RFC3339)
}

func TimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return TimeValue(*t)
}

func DateValue(t time.Time) any {
	return t.Format("2006-01-02")
}

func DecimalValue(d decimal.Decimal) any {
	return d.InexactFloat64()
}

func StringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func IntPtr(i *int) any {
	if i == nil {
		return nil
	}
	return float64(*i)
}

func DecimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}
