// Package accept runs a source's embedded acceptance tests against its
// conform rules before full-dataset conversion is trusted.
package accept

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openaddr-tools/conform-cli/internal/conform"
	"github.com/openaddr-tools/conform-cli/internal/source"
)

// FieldDiff records one mismatched canonical field.
type FieldDiff struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Failure is one failed acceptance case with its field-level diff.
type Failure struct {
	Description string      `json:"description"`
	Diffs       []FieldDiff `json:"diffs"`
}

// Report aggregates the outcome of a layer source's acceptance tests.
type Report struct {
	Skipped  bool      `json:"skipped"`
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// OK reports whether conversion may proceed. Skipped sources pass the gate
// but are surfaced as untested so operators can track fixture coverage.
func (r Report) OK() bool {
	return r.Failed == 0
}

// Run evaluates every acceptance case against the conform rules. Each case
// builds a synthetic geometry-free row from its literal inputs, assembles a
// canonical record, and compares exactly the fields named in expected.
func Run(ts *source.TestSpec, cs source.ConformSpec) Report {
	if ts == nil || !ts.Enabled() || len(ts.Cases) == 0 {
		return Report{Skipped: true}
	}

	asm := conform.NewAssembler(cs, "")
	report := Report{Total: len(ts.Cases)}

	for i, tc := range ts.Cases {
		row := conform.NewMapRow(tc.Inputs)
		rec := asm.Assemble(row)

		var diffs []FieldDiff
		for field, expected := range tc.Expected {
			name := strings.ToLower(field)
			if actual := rec.Fields[name]; actual != expected {
				diffs = append(diffs, FieldDiff{Field: name, Expected: expected, Actual: actual})
			}
		}

		if len(diffs) == 0 {
			report.Passed++
			continue
		}

		sort.Slice(diffs, func(a, b int) bool { return diffs[a].Field < diffs[b].Field })
		report.Failed++
		report.Failures = append(report.Failures, Failure{
			Description: caseDescription(i, tc),
			Diffs:       diffs,
		})
	}

	return report
}

func caseDescription(index int, tc source.AcceptanceCase) string {
	if tc.Description != "" {
		return tc.Description
	}
	return fmt.Sprintf("test %d", index)
}

// String renders the report for operator diagnosis.
func (r Report) String() string {
	if r.Skipped {
		return "no acceptance tests"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d acceptance tests passed", r.Passed, r.Total)
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\nFAIL %s", f.Description)
		for _, d := range f.Diffs {
			fmt.Fprintf(&b, "\n  %s: expected %q, got %q", d.Field, d.Expected, d.Actual)
		}
	}
	return b.String()
}
