package conform

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/openaddr-tools/conform-cli/internal/source"
)

// Address-token patterns shared by the prefixed/postfixed extraction
// functions. House numbers cover plain digits with optional fractions
// ("123 1/2"), hyphenated pairs ("69-15"), and letter suffixes ("123A").
var (
	prefixedNumberRe = regexp.MustCompile(
		`(?i)^\s*(\d+(?:[ -]\d/\d)?|\d+-\d+|\d+-?[A-Z])\s+`)
	postfixedStreetRe = regexp.MustCompile(
		`(?i)^(?:\s*(?:\d+(?:[ -]\d/\d)?|\d+-\d+|\d+-?[A-Z])\s+)?(.*)`)
	postfixedStreetUnitsRe = regexp.MustCompile(
		`(?i)^(?:\s*(?:\d+(?:[ -]\d/\d)?|\d+-\d+|\d+-?[A-Z])\s+)?(.+?)(?:\s+(?:(?:UNIT|APARTMENT|APT\.?|SUITE|STE\.?|BUILDING|BLDG\.?|LOT)\s+|#).+)?$`)
	postfixedUnitRe = regexp.MustCompile(
		`(?i)\s((?:(?:UNIT|APARTMENT|APT\.?|SUITE|STE\.?|BUILDING|BLDG\.?|LOT)\s+|#).+)$`)
	formatVarRe = regexp.MustCompile(`\$(\d+)`)
)

// patternCache holds compiled user-supplied regexp patterns. The conform spec
// is immutable after load, so entries are written once and shared across
// worker goroutines.
var patternCache sync.Map // pattern string -> *regexp.Regexp

func compiledPattern(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Loader validation rejects bad patterns; an uncompilable pattern
		// here means the rules bypassed Load, so degrade to empty.
		return nil, false
	}
	patternCache.Store(pattern, re)
	return re, true
}

// evalFunction dispatches a named attribute function against a row. Unknown
// names resolve to empty string; the loader has already rejected them.
func evalFunction(fn *source.FunctionSpec, row Row) string {
	if fn == nil {
		return ""
	}

	switch fn.Function {
	case "join":
		return fxnJoin(fn, row)
	case "format":
		return fxnFormat(fn, row)
	case "regexp":
		return fxnRegexp(fn, row)
	case "prefixed_number":
		return firstGroup(prefixedNumberRe, fieldValue(row, fn.Field))
	case "postfixed_street":
		re := postfixedStreetRe
		if fn.MayContainUnits {
			re = postfixedStreetUnitsRe
		}
		return firstGroup(re, fieldValue(row, fn.Field))
	case "postfixed_unit":
		return firstGroup(postfixedUnitRe, fieldValue(row, fn.Field))
	case "remove_prefix":
		return fxnRemovePrefix(fn, row)
	case "remove_postfix":
		return fxnRemovePostfix(fn, row)
	case "chain":
		return fxnChain(fn, row)
	case "first_non_empty":
		return fxnFirstNonEmpty(fn, row)
	}
	return ""
}

func fieldValue(row Row, name string) string {
	v, _ := row.Field(name)
	return v
}

// firstGroup returns the concatenated capture groups of the first match, or
// empty string when the pattern does not match.
func firstGroup(re *regexp.Regexp, value string) string {
	m := re.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, g := range m[1:] {
		b.WriteString(g)
	}
	return b.String()
}

func fxnJoin(fn *source.FunctionSpec, row Row) string {
	separator := fn.Separator
	if separator == "" {
		separator = " "
	}
	parts := make([]string, 0, len(fn.Fields))
	for _, name := range fn.Fields {
		if v := strings.TrimSpace(fieldValue(row, name)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, separator)
}

// fxnFormat renders a "$1 $2"-style template over the named fields. Template
// text between references is dropped when the preceding field is empty, and
// an all-empty field set produces an empty result.
func fxnFormat(fn *source.FunctionSpec, row Row) string {
	fields := make([]string, len(fn.Fields))
	for i, name := range fn.Fields {
		fields[i] = strings.TrimSpace(fieldValue(row, name))
	}

	var parts []string
	idx := 0
	added := 0

	for _, m := range formatVarRe.FindAllStringSubmatchIndex(fn.Format, -1) {
		start, end := m[0], m[1]
		fieldIdx, _ := strconv.Atoi(fn.Format[m[2]:m[3]])

		if fieldIdx > 0 && fieldIdx-1 < len(fields) {
			field := fields[fieldIdx-1]

			if idx == 0 || (added > 0 && field != "") {
				parts = append(parts, fn.Format[idx:start])
			}
			if field != "" {
				field = strings.TrimSuffix(field, ".0")
				parts = append(parts, field)
				added++
			}
		}
		idx = end
	}

	if added == 0 {
		return ""
	}
	parts = append(parts, fn.Format[idx:])
	return strings.Join(parts, "")
}

// fxnRegexp extracts or rewrites a field with a user-supplied pattern. With a
// replace template the substitution is applied across the value; without one
// the result is the concatenated capture groups, or the whole match when the
// pattern has no groups. No match yields empty string, never an error.
func fxnRegexp(fn *source.FunctionSpec, row Row) string {
	re, ok := compiledPattern(fn.Pattern)
	if !ok {
		return ""
	}
	value := fieldValue(row, fn.Field)

	if fn.Replace != "" {
		return re.ReplaceAllString(value, fn.Replace)
	}

	m := re.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	if len(m) == 1 {
		return m[0]
	}
	var b strings.Builder
	for _, g := range m[1:] {
		b.WriteString(g)
	}
	return b.String()
}

func fxnRemovePrefix(fn *source.FunctionSpec, row Row) string {
	value := fieldValue(row, fn.Field)
	remove := fieldValue(row, fn.FieldToRemove)
	if strings.HasPrefix(value, remove) {
		return strings.TrimLeft(value[len(remove):], " ")
	}
	return value
}

func fxnRemovePostfix(fn *source.FunctionSpec, row Row) string {
	value := fieldValue(row, fn.Field)
	remove := fieldValue(row, fn.FieldToRemove)
	if remove != "" && strings.HasSuffix(value, remove) {
		return strings.TrimRight(value[:len(value)-len(remove)], " ")
	}
	return value
}

// overlayRow exposes a chain's working variable alongside the base row.
type overlayRow struct {
	base  Row
	name  string
	value string
}

func (r *overlayRow) Field(name string) (string, bool) {
	if r.name != "" && strings.ToLower(name) == r.name {
		return r.value, true
	}
	return r.base.Field(name)
}

func (r *overlayRow) Centroid() (float64, float64, bool) {
	return r.base.Centroid()
}

// fxnChain runs sub-functions in sequence. Each non-empty intermediate result
// is stored under the chain variable, where later steps can read it; the
// chain's value is the last step's output.
func fxnChain(fn *source.FunctionSpec, row Row) string {
	scratch := &overlayRow{base: row, name: fn.Variable}

	var out string
	for i := range fn.Functions {
		out = evalFunction(&fn.Functions[i], scratch)
		if out != "" {
			scratch.value = out
		}
	}
	return out
}

func fxnFirstNonEmpty(fn *source.FunctionSpec, row Row) string {
	for _, name := range fn.Fields {
		if v := fieldValue(row, name); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
