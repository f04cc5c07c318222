// Package writer serializes canonical records to delimited text and
// accumulates run statistics.
package writer

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/openaddr-tools/conform-cli/internal/conform"
	"github.com/openaddr-tools/conform-cli/internal/source"
)

// Columns is the output column order: the canonical fields plus the row
// hash. Every record carries all columns, empty string for unmapped fields.
var Columns = func() []string {
	cols := make([]string, 0, len(source.CanonicalFields)+1)
	for _, f := range source.CanonicalFields {
		cols = append(cols, strings.ToUpper(f))
	}
	return append(cols, "HASH")
}()

// Stats summarizes a conversion run. Per-field empty counts are the
// operator's data-quality signal; empty fields are never an error channel.
type Stats struct {
	Rows  int            `json:"rows"`
	Empty map[string]int `json:"empty"`
}

// CSVWriter writes canonical records to a CSV file in column order.
type CSVWriter struct {
	f     *os.File
	w     *csv.Writer
	stats Stats
}

// NewCSV creates the output file and writes the header row.
func NewCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "writer: create %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "writer: write header")
	}

	return &CSVWriter{
		f:     f,
		w:     w,
		stats: Stats{Empty: make(map[string]int)},
	}, nil
}

// Write appends one record.
func (cw *CSVWriter) Write(rec conform.Record) error {
	row := make([]string, 0, len(Columns))
	for _, col := range Columns {
		v := rec.Fields[strings.ToLower(col)]
		if v == "" {
			cw.stats.Empty[strings.ToLower(col)]++
		}
		row = append(row, v)
	}

	if err := cw.w.Write(row); err != nil {
		return eris.Wrap(err, "writer: write record")
	}
	cw.stats.Rows++
	return nil
}

// Stats returns the counts accumulated so far.
func (cw *CSVWriter) Stats() Stats {
	return cw.stats
}

// Close flushes and closes the output file.
func (cw *CSVWriter) Close() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		_ = cw.f.Close()
		return eris.Wrap(err, "writer: flush")
	}
	return eris.Wrap(cw.f.Close(), "writer: close")
}
