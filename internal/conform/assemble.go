package conform

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/openaddr-tools/conform-cli/internal/source"
)

// Record is one canonical output row. Every canonical field is always
// present — empty string for unmapped fields — so downstream consumers stay
// schema-stable.
type Record struct {
	// Fields keyed by lowercase canonical field name, plus "hash".
	Fields map[string]string
	// Index is the source row index, used to reimpose output ordering.
	Index int
}

// Assembler applies a conform spec across all canonical fields of a row.
// It is immutable after construction and safe for concurrent use.
type Assembler struct {
	spec        source.ConformSpec
	fingerprint string
}

// NewAssembler builds an assembler for one layer source. The fingerprint
// seeds row hashes so identical content from different cache generations
// hashes differently.
func NewAssembler(spec source.ConformSpec, fingerprint string) *Assembler {
	return &Assembler{spec: spec, fingerprint: fingerprint}
}

// Assemble produces one canonical record from a row. Geometry-derived
// coordinates fill lon/lat when the row carries geometry and no explicit
// rule maps them.
func (a *Assembler) Assemble(row Row) Record {
	fields := make(map[string]string, len(source.CanonicalFields)+1)

	for _, name := range source.CanonicalFields {
		rule, mapped := a.spec.Rules[name]
		if mapped {
			fields[name] = strings.TrimSpace(Evaluate(rule, row))
			continue
		}
		fields[name] = ""
	}

	if lon, lat, ok := row.Centroid(); ok {
		if _, mapped := a.spec.Rules["lon"]; !mapped {
			fields["lon"] = formatCoord(lon)
		}
		if _, mapped := a.spec.Rules["lat"]; !mapped {
			fields["lat"] = formatCoord(lat)
		}
	}

	canonicalize(fields)
	fields["hash"] = a.recordHash(fields)

	return Record{Fields: fields}
}

// canonicalize normalizes resolved values: coordinates round to 7 decimal
// places (1cm precision) and house numbers drop a float-cast ".0" suffix.
func canonicalize(fields map[string]string) {
	fields["lon"] = roundCoord(fields["lon"])
	fields["lat"] = roundCoord(fields["lat"])
	fields["number"] = strings.TrimSuffix(fields["number"], ".0")
}

// roundCoord rounds a coordinate string to 7 decimal places. Unparsable
// values pass through untouched.
func roundCoord(s string) string {
	if s == "" {
		return s
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return s
	}
	return formatCoord(f)
}

func formatCoord(f float64) string {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 7, 64), 64)
	if err != nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(rounded, 'g', 12, 64)
}

// recordHash derives a stable 64-bit row identifier: 16 hex chars of SHA-1
// over the fingerprint plus the canonical field values in schema order.
func (a *Assembler) recordHash(fields map[string]string) string {
	h := sha1.New()
	h.Write([]byte(a.fingerprint))
	for _, name := range source.CanonicalFields {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(fields[name]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
