// Package conform evaluates declarative conform rules against source rows
// and assembles canonical address records.
package conform

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Row is one decoded source row: field values by name, plus an optional
// geometry centroid. Lookups are case-insensitive; absent fields are never
// an error — conform rules are best-effort over noisy real-world data.
type Row interface {
	// Field returns the raw value for a source field name.
	Field(name string) (string, bool)
	// Centroid returns the geometry-derived longitude/latitude, if any.
	Centroid() (lon, lat float64, ok bool)
}

// MapRow is a Row backed by a plain map, used for decoded feature attributes
// and for synthetic acceptance-test fixtures.
type MapRow struct {
	fields  map[string]string
	lon     float64
	lat     float64
	hasGeom bool
}

// NewMapRow builds a MapRow from raw values. Keys are lowercased; values may
// be strings, numbers, booleans, or nil (nil becomes the empty string).
func NewMapRow(fields map[string]any) *MapRow {
	m := make(map[string]string, len(fields))
	for k, v := range fields {
		m[strings.ToLower(k)] = stringifyValue(v)
	}
	return &MapRow{fields: m}
}

// SetCentroid attaches a geometry-derived coordinate pair to the row.
func (r *MapRow) SetCentroid(lon, lat float64) {
	r.lon, r.lat = lon, lat
	r.hasGeom = true
}

func (r *MapRow) Field(name string) (string, bool) {
	v, ok := r.fields[strings.ToLower(name)]
	return v, ok
}

func (r *MapRow) Centroid() (float64, float64, bool) {
	return r.lon, r.lat, r.hasGeom
}

// stringifyValue renders a decoded JSON/attribute value as text. Numbers use
// their shortest decimal form.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
