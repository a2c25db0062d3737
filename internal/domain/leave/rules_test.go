package leave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityRulesIsZero(t *testing.T) {
	assert.True(t, EligibilityRules{}.IsZero())
	assert.False(t, EligibilityRules{
		All: []RuleCondition{{Attr: "role", Op: "eq", Value: "employee"}},
	}.IsZero())
}

func TestEvaluateEmptyDocumentPasses(t *testing.T) {
	ok, failed := EligibilityRules{}.Evaluate(map[string]string{"role": "employee"})
	assert.True(t, ok)
	assert.Empty(t, failed)
}

func TestEvaluateAllRequiresEveryCondition(t *testing.T) {
	rules := EligibilityRules{
		All: []RuleCondition{
			{Attr: "employment_type", Op: "eq", Value: "full_time"},
			{Attr: "status", Op: "ne", Value: "suspended"},
		},
	}

	ok, failed := rules.Evaluate(map[string]string{
		"employment_type": "full_time",
		"status":          "active",
	})
	assert.True(t, ok)
	assert.Empty(t, failed)

	ok, failed = rules.Evaluate(map[string]string{
		"employment_type": "contract",
		"status":          "active",
	})
	assert.False(t, ok)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0], "employment_type eq full_time")
}

func TestEvaluateAnyNeedsOneMatch(t *testing.T) {
	rules := EligibilityRules{
		Any: []RuleCondition{
			{Attr: "role", Op: "eq", Value: "manager"},
			{Attr: "role", Op: "eq", Value: "hr_admin"},
		},
	}

	ok, _ := rules.Evaluate(map[string]string{"role": "hr_admin"})
	assert.True(t, ok)

	ok, failed := rules.Evaluate(map[string]string{"role": "employee"})
	assert.False(t, ok)
	// Every any-condition surfaces when none matched.
	assert.Len(t, failed, 2)
}

func TestEvaluateInOperator(t *testing.T) {
	rules := EligibilityRules{
		All: []RuleCondition{
			{Attr: "role", Op: "in", Value: []string{"employee", "manager"}},
		},
	}

	ok, _ := rules.Evaluate(map[string]string{"role": "manager"})
	assert.True(t, ok)

	ok, _ = rules.Evaluate(map[string]string{"role": "auditor"})
	assert.False(t, ok)

	// Missing attribute never satisfies in.
	ok, _ = rules.Evaluate(map[string]string{})
	assert.False(t, ok)
}

func TestEvaluateInAcceptsJSONDecodedSlices(t *testing.T) {
	// JSONB round-trips []string as []any.
	rules := EligibilityRules{
		All: []RuleCondition{
			{Attr: "role", Op: "in", Value: []any{"employee", "manager"}},
		},
	}

	ok, _ := rules.Evaluate(map[string]string{"role": "employee"})
	assert.True(t, ok)
}

func TestEvaluateNeMissingAttributePasses(t *testing.T) {
	rules := EligibilityRules{
		All: []RuleCondition{
			{Attr: "department", Op: "ne", Value: "finance"},
		},
	}

	ok, _ := rules.Evaluate(map[string]string{})
	assert.True(t, ok)
}

func TestEvaluateUnknownOperatorNeverMatches(t *testing.T) {
	rules := EligibilityRules{
		All: []RuleCondition{
			{Attr: "role", Op: "gte", Value: "employee"},
		},
	}

	ok, failed := rules.Evaluate(map[string]string{"role": "employee"})
	assert.False(t, ok)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0], "gte")
}

func TestEligibilityRulesValueScan(t *testing.T) {
	rules := EligibilityRules{
		All: []RuleCondition{{Attr: "role", Op: "eq", Value: "employee"}},
	}

	raw, err := rules.Value()
	require.NoError(t, err)
	require.NotNil(t, raw)

	var decoded EligibilityRules
	require.NoError(t, decoded.Scan(raw))
	require.Len(t, decoded.All, 1)
	assert.Equal(t, "role", decoded.All[0].Attr)

	// Zero documents store as NULL and scan back untouched.
	raw, err = EligibilityRules{}.Value()
	require.NoError(t, err)
	assert.Nil(t, raw)

	var empty EligibilityRules
	require.NoError(t, empty.Scan(nil))
	assert.True(t, empty.IsZero())
}
