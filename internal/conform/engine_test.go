package conform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openaddr-tools/conform-cli/internal/source"
)

func TestEvaluate_DirectField(t *testing.T) {
	r := row(map[string]any{"housenum": "  5 ", "city": "Portland"})

	rule := source.FieldRule{Kind: source.RuleDirect, Field: "housenum"}
	assert.Equal(t, "5", Evaluate(rule, r))

	missing := source.FieldRule{Kind: source.RuleDirect, Field: "nope"}
	assert.Equal(t, "", Evaluate(missing, r))
}

func TestEvaluate_DirectFieldCaseInsensitive(t *testing.T) {
	r := row(map[string]any{"HouseNum": "5"})

	rule := source.FieldRule{Kind: source.RuleDirect, Field: "housenum"}
	assert.Equal(t, "5", Evaluate(rule, r))
}

func TestEvaluate_JoinSkipsEmpties(t *testing.T) {
	r := row(map[string]any{"predir": "N", "name": "MAIN", "suffix": "", "postdir": " "})

	rule := source.FieldRule{Kind: source.RuleJoin, Fields: []string{"predir", "name", "suffix", "postdir"}}
	assert.Equal(t, "N MAIN", Evaluate(rule, r))
}

func TestEvaluate_NumericSourceValue(t *testing.T) {
	r := row(map[string]any{"zip": 97415.0, "num": 42})

	assert.Equal(t, "97415", Evaluate(source.FieldRule{Kind: source.RuleDirect, Field: "zip"}, r))
	assert.Equal(t, "42", Evaluate(source.FieldRule{Kind: source.RuleDirect, Field: "num"}, r))
}

func TestEvaluate_ZeroRuleIsEmpty(t *testing.T) {
	assert.Equal(t, "", Evaluate(source.FieldRule{}, row(nil)))
}
