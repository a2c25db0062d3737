package leave

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// EligibilityRules is the deterministic rule document evaluated for policies
// with eligibility_type = custom. Conditions compare enumerated user
// attributes with eq, ne and in operators; "all" conditions must every one
// hold, "any" conditions need at least one.
type EligibilityRules struct {
	All []RuleCondition `json:"all,omitempty"`
	Any []RuleCondition `json:"any,omitempty"`
}

type RuleCondition struct {
	Attr  string `json:"attr"`
	Op    string `json:"op"` // 'eq', 'ne', 'in'
	Value any    `json:"value"`
}

func (r EligibilityRules) IsZero() bool {
	return len(r.All) == 0 && len(r.Any) == 0
}

// Evaluate checks the rules against a user attribute map and returns the
// human-readable criteria that failed. An empty document passes.
func (r EligibilityRules) Evaluate(attrs map[string]string) (bool, []string) {
	var failed []string

	for _, cond := range r.All {
		if !cond.matches(attrs) {
			failed = append(failed, cond.describe())
		}
	}

	if len(r.Any) > 0 {
		anyPassed := false
		for _, cond := range r.Any {
			if cond.matches(attrs) {
				anyPassed = true
				break
			}
		}
		if !anyPassed {
			for _, cond := range r.Any {
				failed = append(failed, "any: "+cond.describe())
			}
		}
	}

	return len(failed) == 0, failed
}

func (c RuleCondition) matches(attrs map[string]string) bool {
	actual, ok := attrs[c.Attr]

	switch c.Op {
	case "eq":
		return ok && actual == asString(c.Value)
	case "ne":
		return !ok || actual != asString(c.Value)
	case "in":
		if !ok {
			return false
		}
		for _, candidate := range asStrings(c.Value) {
			if actual == candidate {
				return true
			}
		}
		return false
	default:
		// Unknown operators never match; the failed criteria surface them.
		return false
	}
}

func (c RuleCondition) describe() string {
	return fmt.Sprintf("%s %s %v", c.Attr, c.Op, c.Value)
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, asString(item))
		}
		return out
	default:
		return nil
	}
}

// Value implements driver.Valuer for database storage
func (r EligibilityRules) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for database retrieval
func (r *EligibilityRules) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan EligibilityRules: invalid type")
	}

	return json.Unmarshal(bytes, r)
}
