// Package source defines the typed model for source definition documents
// and the loader that validates them before any row processing begins.
package source

// SupportedSchemaVersion is the only source document schema version the
// loader accepts. Older layerless documents are upgraded transparently.
const SupportedSchemaVersion = 2

// Canonical output fields that conform rules may map, in output order.
// LON and LAT may alternatively be derived from row geometry.
var CanonicalFields = []string{
	"lon", "lat", "number", "street", "unit", "city",
	"district", "region", "postcode", "id",
}

// KnownFunctions is the closed set of attribute-function names recognized by
// the rule engine. The loader rejects any other name before row processing.
var KnownFunctions = map[string]bool{
	"join":             true,
	"format":           true,
	"regexp":           true,
	"prefixed_number":  true,
	"postfixed_street": true,
	"postfixed_unit":   true,
	"remove_prefix":    true,
	"remove_postfix":   true,
	"chain":            true,
	"first_non_empty":  true,
}

// IsCanonicalField reports whether name is one of the canonical output fields.
func IsCanonicalField(name string) bool {
	for _, f := range CanonicalFields {
		if f == name {
			return true
		}
	}
	return false
}

// SourceDefinition is a parsed source document: schema version, free-form
// coverage metadata, and named layers each holding one or more layer sources.
type SourceDefinition struct {
	Schema   int                      `json:"schema"`
	Coverage map[string]any           `json:"coverage,omitempty"`
	Layers   map[string][]LayerSource `json:"layers"`
}

// LayerSource describes one dataset within a layer: where it lives, how it is
// packaged, how its fields conform to the canonical schema, and the embedded
// acceptance tests that validate those rules.
type LayerSource struct {
	Name        string      `json:"name"`
	Data        string      `json:"data,omitempty"`
	Website     string      `json:"website,omitempty"`
	Protocol    string      `json:"protocol,omitempty"`
	Compression string      `json:"compression,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Conform     ConformSpec `json:"conform"`
	Test        *TestSpec   `json:"test,omitempty"`
}

// ConformSpec maps canonical field names to rules, plus format-selection
// metadata consumed by the decoders rather than the rule engine.
type ConformSpec struct {
	// Rules keyed by lowercase canonical field name.
	Rules map[string]FieldRule

	// Decoder metadata.
	Format    string
	File      string
	Layer     string
	Accuracy  int
	Encoding  string
	CSVSplit  string
	Headers   int
	SkipLines int
	SRS       string
}

// TestSpec holds the embedded acceptance tests for a layer source.
type TestSpec struct {
	EnabledSet  *bool            `json:"enabled,omitempty"`
	Description string           `json:"description,omitempty"`
	Cases       []AcceptanceCase `json:"acceptance-tests,omitempty"`
}

// Enabled reports whether the tests should run. A test block without an
// explicit enabled flag defaults to enabled.
func (ts *TestSpec) Enabled() bool {
	if ts == nil {
		return false
	}
	if ts.EnabledSet != nil {
		return *ts.EnabledSet
	}
	return true
}

// AcceptanceCase is one literal input row plus the canonical fields it is
// expected to produce. Fields absent from Expected are not checked.
type AcceptanceCase struct {
	Description string            `json:"description,omitempty"`
	Inputs      map[string]any    `json:"inputs"`
	Expected    map[string]string `json:"expected"`
}

// Find returns the named layer source within the named layer.
func (sd *SourceDefinition) Find(layer, name string) (*LayerSource, bool) {
	sources, ok := sd.Layers[layer]
	if !ok {
		return nil, false
	}
	for i := range sources {
		if sources[i].Name == name {
			return &sources[i], true
		}
	}
	return nil, false
}
