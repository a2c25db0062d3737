package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffReportsChangedKeys(t *testing.T) {
	old := Values{"status": "draft", "reason": "vacation", "total_days": 3.0}
	new := Values{"status": "pending_approval", "reason": "vacation", "total_days": 3.0}

	changes := Diff(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Old: "draft", New: "pending_approval"}, changes["status"])
}

func TestDiffCoversBothKeySets(t *testing.T) {
	old := Values{"removed": "x", "kept": "same"}
	new := Values{"added": "y", "kept": "same"}

	changes := Diff(old, new)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Old: "x", New: nil}, changes["removed"])
	assert.Equal(t, Change{Old: nil, New: "y"}, changes["added"])
}

func TestDiffNilWhenUnchanged(t *testing.T) {
	v := Values{"status": "active", "days": 12.5}
	assert.Nil(t, Diff(v, Values{"status": "active", "days": 12.5}))
}

func TestDiffNilWhenEitherSideAbsent(t *testing.T) {
	v := Values{"status": "active"}
	assert.Nil(t, Diff(nil, v))
	assert.Nil(t, Diff(v, nil))
	assert.Nil(t, Diff(nil, nil))
}

func TestDiffNilValuesCompareEqual(t *testing.T) {
	old := Values{"manager_id": nil}
	new := Values{"manager_id": nil}
	assert.Nil(t, Diff(old, new))

	id := uuid.New().String()
	changes := Diff(old, Values{"manager_id": id})
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Old: nil, New: id}, changes["manager_id"])
}

func TestSnapshotHelpers(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id.String(), UUIDValue(id))
	assert.Nil(t, UUIDPtr(nil))
	assert.Equal(t, id.String(), UUIDPtr(&id))

	jakarta := time.FixedZone("WIB", 7*3600)
	ts := time.Date(2026, 3, 15, 9, 30, 0, 0, jakarta)
	assert.Equal(t, "2026-03-15T02:30:00Z", TimeValue(ts))
	assert.Nil(t, TimePtr(nil))
	assert.Equal(t, "2026-03-15T02:30:00Z", TimePtr(&ts))
	assert.Equal(t, "2026-03-15", DateValue(ts))

	assert.Equal(t, 2.5, DecimalValue(decimal.NewFromFloat(2.5)))
	d := decimal.NewFromInt(3)
	assert.Equal(t, 3.0, DecimalPtr(&d))
	assert.Nil(t, DecimalPtr(nil))

	s := "remarks"
	assert.Equal(t, "remarks", StringPtr(&s))
	assert.Nil(t, StringPtr(nil))

	n := 2
	assert.Equal(t, 2.0, IntPtr(&n))
	assert.Nil(t, IntPtr(nil))
}
