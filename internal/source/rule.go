package source

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// RuleKind discriminates the three conform rule shapes.
type RuleKind int

const (
	// RuleDirect copies a single source field verbatim.
	RuleDirect RuleKind = iota + 1
	// RuleJoin concatenates several source fields with single spaces.
	RuleJoin
	// RuleFunction applies a named attribute function.
	RuleFunction
)

// FieldRule is a tagged union: exactly one shape applies per rule. A document
// value that matches none of the shapes is a configuration error at load
// time, never a silent empty result.
type FieldRule struct {
	Kind   RuleKind
	Field  string        // RuleDirect
	Fields []string      // RuleJoin
	Fn     *FunctionSpec // RuleFunction
}

// FunctionSpec carries the parameters of a named attribute function. Only the
// fields relevant to the named function are populated.
type FunctionSpec struct {
	Function        string         `json:"function"`
	Field           string         `json:"field,omitempty"`
	Fields          []string       `json:"fields,omitempty"`
	Pattern         string         `json:"pattern,omitempty"`
	Replace         string         `json:"replace,omitempty"`
	Separator       string         `json:"separator,omitempty"`
	Format          string         `json:"format,omitempty"`
	FieldToRemove   string         `json:"field_to_remove,omitempty"`
	MayContainUnits bool           `json:"may_contain_units,omitempty"`
	Variable        string         `json:"variable,omitempty"`
	Functions       []FunctionSpec `json:"functions,omitempty"`
}

// UnmarshalJSON decodes the three rule shapes: a JSON string is a direct
// field reference, an array of strings is an ordered join, and an object is
// an attribute function.
func (r *FieldRule) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return eris.New("source: empty field rule")
	}

	switch trimmed[0] {
	case '"':
		var field string
		if err := json.Unmarshal(data, &field); err != nil {
			return eris.Wrap(err, "source: parse direct field rule")
		}
		r.Kind = RuleDirect
		r.Field = strings.ToLower(field)
		return nil

	case '[':
		var fields []string
		if err := json.Unmarshal(data, &fields); err != nil {
			return eris.Wrap(err, "source: parse joined fields rule")
		}
		for i, f := range fields {
			fields[i] = strings.ToLower(f)
		}
		r.Kind = RuleJoin
		r.Fields = fields
		return nil

	case '{':
		var fn FunctionSpec
		if err := json.Unmarshal(data, &fn); err != nil {
			return eris.Wrap(err, "source: parse function rule")
		}
		fn.smashCase()
		r.Kind = RuleFunction
		r.Fn = &fn
		return nil
	}

	return eris.Errorf("source: field rule has unrecognized shape: %s", trimmed)
}

// smashCase lowercases every source field reference, recursing into chained
// sub-functions. Conform specs routinely name fields with a case different
// from the source data.
func (f *FunctionSpec) smashCase() {
	f.Field = strings.ToLower(f.Field)
	f.FieldToRemove = strings.ToLower(f.FieldToRemove)
	f.Variable = strings.ToLower(f.Variable)
	for i, name := range f.Fields {
		f.Fields[i] = strings.ToLower(name)
	}
	for i := range f.Functions {
		f.Functions[i].smashCase()
	}
}

// conformMetaKeys are conform tags consumed by the decoders, not the engine.
var conformMetaKeys = map[string]bool{
	"format": true, "file": true, "layer": true, "accuracy": true,
	"encoding": true, "csvsplit": true, "headers": true, "skiplines": true,
	"srs": true,
}

// UnmarshalJSON splits a conform object into decoder metadata and per-field
// rules. Keys that are neither metadata nor canonical fields are ignored;
// they belong to external decoders.
func (cs *ConformSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "source: parse conform object")
	}

	cs.Rules = make(map[string]FieldRule)

	for key, value := range raw {
		lower := strings.ToLower(key)

		if conformMetaKeys[lower] {
			if err := cs.setMeta(lower, value); err != nil {
				return err
			}
			continue
		}

		if !IsCanonicalField(lower) {
			continue
		}

		var rule FieldRule
		if err := json.Unmarshal(value, &rule); err != nil {
			return eris.Wrapf(err, "source: conform field %q", key)
		}
		cs.Rules[lower] = rule
	}

	return nil
}

func (cs *ConformSpec) setMeta(key string, value json.RawMessage) error {
	switch key {
	case "format":
		return unmarshalMeta(key, value, &cs.Format)
	case "file":
		return unmarshalMeta(key, value, &cs.File)
	case "layer":
		// Layer selectors appear as either names or numeric indexes.
		var name string
		if err := json.Unmarshal(value, &name); err == nil {
			cs.Layer = name
			return nil
		}
		var index int
		if err := json.Unmarshal(value, &index); err != nil {
			return eris.Errorf("source: conform layer must be a string or integer: %s", value)
		}
		cs.Layer = strings.TrimSpace(string(value))
		return nil
	case "accuracy":
		return unmarshalMeta(key, value, &cs.Accuracy)
	case "encoding":
		return unmarshalMeta(key, value, &cs.Encoding)
	case "csvsplit":
		return unmarshalMeta(key, value, &cs.CSVSplit)
	case "headers":
		return unmarshalMeta(key, value, &cs.Headers)
	case "skiplines":
		return unmarshalMeta(key, value, &cs.SkipLines)
	case "srs":
		return unmarshalMeta(key, value, &cs.SRS)
	}
	return nil
}

func unmarshalMeta[T any](key string, value json.RawMessage, dst *T) error {
	if err := json.Unmarshal(value, dst); err != nil {
		return eris.Wrapf(err, "source: conform tag %q", key)
	}
	return nil
}
