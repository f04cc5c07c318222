package source

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Load reads and validates a source definition document. All configuration
// errors surface here, before any row is processed.
func Load(path string) (*SourceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	return Parse(data)
}

// Parse parses a source document, upgrading legacy layerless documents, and
// validates every conform rule and acceptance test up front.
func Parse(data []byte) (*SourceDefinition, error) {
	var probe struct {
		Schema *int            `json:"schema"`
		Layers json.RawMessage `json:"layers"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrap(err, "source: parse document")
	}

	if probe.Schema == nil && probe.Layers == nil {
		upgraded, err := upgradeLegacy(data)
		if err != nil {
			return nil, err
		}
		data = upgraded
		zap.L().Debug("source: upgraded legacy layerless document")
	} else if probe.Schema == nil {
		return nil, eris.New("source: document has layers but no schema version")
	} else if *probe.Schema != SupportedSchemaVersion {
		return nil, eris.Errorf("source: unsupported schema version %d (supported: %d)",
			*probe.Schema, SupportedSchemaVersion)
	}

	var sd SourceDefinition
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, eris.Wrap(err, "source: parse document")
	}
	sd.Schema = SupportedSchemaVersion

	if len(sd.Layers) == 0 {
		return nil, eris.New("source: document has no layers")
	}

	for layer, sources := range sd.Layers {
		for i := range sources {
			ls := &sources[i]
			if ls.Name == "" {
				return nil, eris.Errorf("source: layer %q source %d has no name", layer, i)
			}
			if err := ValidateConform(ls.Conform); err != nil {
				return nil, eris.Wrapf(err, "source: layer %q source %q", layer, ls.Name)
			}
			if err := validateTests(ls.Test); err != nil {
				return nil, eris.Wrapf(err, "source: layer %q source %q", layer, ls.Name)
			}
		}
	}

	return &sd, nil
}

// upgradeLegacy wraps a schema-v1 layerless document as the single "primary"
// source of an addresses layer.
func upgradeLegacy(data []byte) ([]byte, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, eris.Wrap(err, "source: parse legacy document")
	}

	primary := make(map[string]json.RawMessage, len(body)+1)
	for k, v := range body {
		if k == "coverage" {
			continue
		}
		primary[k] = v
	}
	primary["name"] = json.RawMessage(`"primary"`)

	out := map[string]any{
		"schema": SupportedSchemaVersion,
		"layers": map[string]any{"addresses": []any{primary}},
	}
	if coverage, ok := body["coverage"]; ok {
		out["coverage"] = coverage
	}

	upgraded, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "source: marshal upgraded document")
	}
	return upgraded, nil
}

// ValidateConform checks every rule against the closed function registry and
// compiles every regular expression, so malformed rules fail the source
// instead of silently degrading output mid-run.
func ValidateConform(cs ConformSpec) error {
	for field, rule := range cs.Rules {
		if err := validateRule(rule); err != nil {
			return eris.Wrapf(err, "conform field %q", field)
		}
	}
	return nil
}

func validateRule(rule FieldRule) error {
	switch rule.Kind {
	case RuleDirect:
		if rule.Field == "" {
			return eris.New("direct field rule names no field")
		}
	case RuleJoin:
		if len(rule.Fields) == 0 {
			return eris.New("joined fields rule lists no fields")
		}
	case RuleFunction:
		return validateFunction(rule.Fn)
	default:
		return eris.New("rule has no recognized shape")
	}
	return nil
}

func validateFunction(fn *FunctionSpec) error {
	if fn == nil || fn.Function == "" {
		return eris.New("function rule names no function")
	}
	if !KnownFunctions[fn.Function] {
		return eris.Errorf("unknown function %q", fn.Function)
	}

	switch fn.Function {
	case "regexp":
		if fn.Pattern == "" {
			return eris.New("regexp function has no pattern")
		}
		if _, err := regexp.Compile(fn.Pattern); err != nil {
			return eris.Wrapf(err, "regexp pattern %q", fn.Pattern)
		}
	case "join", "format", "first_non_empty":
		if len(fn.Fields) == 0 {
			return eris.Errorf("%s function lists no fields", fn.Function)
		}
		if fn.Function == "format" && fn.Format == "" {
			return eris.New("format function has no format template")
		}
	case "chain":
		if len(fn.Functions) == 0 {
			return eris.New("chain function has no sub-functions")
		}
		for i := range fn.Functions {
			if err := validateFunction(&fn.Functions[i]); err != nil {
				return eris.Wrapf(err, "chain step %d", i)
			}
		}
	}

	if fn.Function != "join" && fn.Function != "format" &&
		fn.Function != "chain" && fn.Function != "first_non_empty" && fn.Field == "" {
		return eris.Errorf("%s function names no field", fn.Function)
	}

	return nil
}

// validateTests rejects acceptance cases whose expected block names a field
// outside the canonical schema; a typo there would otherwise silently pass.
func validateTests(ts *TestSpec) error {
	if ts == nil {
		return nil
	}
	for i, tc := range ts.Cases {
		if len(tc.Inputs) == 0 {
			return eris.Errorf("acceptance test %d has no inputs", i)
		}
		for field := range tc.Expected {
			if !IsCanonicalField(strings.ToLower(field)) {
				return eris.Errorf("acceptance test %d expects unknown canonical field %q", i, field)
			}
		}
	}
	return nil
}
