package decode

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/openaddr-tools/conform-cli/internal/conform"
	"github.com/openaddr-tools/conform-cli/internal/source"
)

// CSVReader streams rows from a delimited text source, honoring the conform
// csvsplit, encoding, headers, and skiplines tags.
type CSVReader struct {
	f       *os.File
	r       *csv.Reader
	header  []string
	pending []string
	skipped int
	log     *zap.Logger
}

// OpenCSV opens a CSV source and positions the reader at the first data row.
func OpenCSV(path string, cs source.ConformSpec) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "decode: open csv %s", path)
	}

	var src io.Reader = f
	if cs.Encoding != "" {
		enc, encErr := htmlindex.Get(cs.Encoding)
		if encErr != nil {
			_ = f.Close()
			return nil, eris.Wrapf(encErr, "decode: unknown encoding %q", cs.Encoding)
		}
		src = enc.NewDecoder().Reader(f)
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if cs.CSVSplit != "" {
		r.Comma = []rune(cs.CSVSplit)[0]
	}

	cr := &CSVReader{
		f:   f,
		r:   r,
		log: zap.L().With(zap.String("component", "decode.csv")),
	}

	if err := cr.readHeader(cs); err != nil {
		_ = f.Close()
		return nil, err
	}
	return cr, nil
}

// readHeader resolves the column names. headers: -1 synthesizes COLUMN1..N
// names from the first row's width; headers: N with matching skiplines skips
// leading junk lines before the real header row.
func (cr *CSVReader) readHeader(cs source.ConformSpec) error {
	switch {
	case cs.Headers == -1:
		record, err := cr.r.Read()
		if err != nil {
			return eris.Wrap(err, "decode: csv first row")
		}
		cr.header = make([]string, len(record))
		for i := range record {
			cr.header[i] = fmt.Sprintf("column%d", i+1)
		}
		// The first row is data; hold it for the first Next call.
		cr.pending = record
		return nil

	case cs.Headers > 0:
		if cs.SkipLines != cs.Headers {
			return eris.Errorf("decode: headers=%d requires skiplines=%d", cs.Headers, cs.Headers)
		}
		for n := 1; n < cs.Headers; n++ {
			if _, err := cr.r.Read(); err != nil {
				return eris.Wrapf(err, "decode: csv skip line %d", n)
			}
		}
		fallthrough

	default:
		record, err := cr.r.Read()
		if err != nil {
			return eris.Wrap(err, "decode: csv header row")
		}
		cr.header = record
		return nil
	}
}

// Next returns the next data row. Rows whose field count disagrees with the
// header are skipped, not fatal.
func (cr *CSVReader) Next() (conform.Row, error) {
	for {
		record := cr.pending
		cr.pending = nil
		if record == nil {
			var err error
			record, err = cr.r.Read()
			if err == io.EOF {
				if cr.skipped > 0 {
					cr.log.Debug("skipped malformed csv rows", zap.Int("skipped", cr.skipped))
				}
				return nil, io.EOF
			}
			if err != nil {
				return nil, eris.Wrap(err, "decode: csv read row")
			}
		}

		if len(record) != len(cr.header) {
			cr.skipped++
			continue
		}

		fields := make(map[string]any, len(record))
		for i, name := range cr.header {
			fields[name] = record[i]
		}
		return conform.NewMapRow(fields), nil
	}
}

func (cr *CSVReader) Close() error {
	return cr.f.Close()
}
