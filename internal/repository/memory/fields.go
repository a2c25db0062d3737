package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field maps use the database column vocabulary so engines drive the memory
// and postgresql repositories with identical update calls.

func errUnknownField(col string) error {
	return fmt.Errorf("unknown field %q", col)
}

func asFieldString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case *string:
		if vv == nil {
			return ""
		}
		return *vv
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asStringPtr(v any) *string {
	switch vv := v.(type) {
	case nil:
		return nil
	case *string:
		return vv
	case string:
		return &vv
	default:
		s := fmt.Sprintf("%v", v)
		return &s
	}
}

func asUUIDPtr(v any) *uuid.UUID {
	switch vv := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return &vv
	case *uuid.UUID:
		return vv
	default:
		return nil
	}
}

func asTimePtr(v any) *time.Time {
	switch vv := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &vv
	case *time.Time:
		return vv
	default:
		return nil
	}
}

func asDecimal(v any) decimal.Decimal {
	switch vv := v.(type) {
	case decimal.Decimal:
		return vv
	case float64:
		return decimal.NewFromFloat(vv)
	case int:
		return decimal.NewFromInt(int64(vv))
	default:
		return decimal.Zero
	}
}

func asInt(v any) int {
	switch vv := v.(type) {
	case int:
		return vv
	case int64:
		return int(vv)
	case float64:
		return int(vv)
	default:
		return 0
	}
}
