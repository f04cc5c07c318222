package conform

import (
	"strings"

	"github.com/openaddr-tools/conform-cli/internal/source"
)

// Evaluate applies one conform rule to a row and returns the resolved field
// text. Evaluation is pure: missing fields, failed matches, and empty joins
// all degrade to the empty string rather than an error.
func Evaluate(rule source.FieldRule, row Row) string {
	switch rule.Kind {
	case source.RuleDirect:
		v, _ := row.Field(rule.Field)
		return strings.TrimSpace(v)

	case source.RuleJoin:
		parts := make([]string, 0, len(rule.Fields))
		for _, name := range rule.Fields {
			v, _ := row.Field(name)
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")

	case source.RuleFunction:
		return evalFunction(rule.Fn, row)
	}

	return ""
}
