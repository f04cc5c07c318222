package decode

import (
	"io"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/openaddr-tools/conform-cli/internal/conform"
	"github.com/openaddr-tools/conform-cli/internal/source"
)

// latin1Name is the DBF attribute encoding assumed when a shapefile source
// declares none.
const latin1Name = "iso-8859-1"

// ShapefileReader streams rows from a shapefile. DBF attributes become row
// fields; each shape's centroid supplies the coordinate pair.
type ShapefileReader struct {
	shp     *shp.Reader
	fields  []string
	decoder *encoding.Decoder
	skipped int
	log     *zap.Logger
}

// OpenShapefile opens a .shp/.dbf pair. The conform encoding tag selects the
// attribute charset; shapefiles without one default to Latin-1.
func OpenShapefile(path string, cs source.ConformSpec) (*ShapefileReader, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "decode: open shapefile %s", path)
	}

	name := cs.Encoding
	if name == "" {
		name = latin1Name
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		_ = reader.Close()
		return nil, eris.Wrapf(err, "decode: unknown encoding %q", name)
	}

	raw := reader.Fields()
	fields := make([]string, len(raw))
	for i, f := range raw {
		fields[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	return &ShapefileReader{
		shp:     reader,
		fields:  fields,
		decoder: enc.NewDecoder(),
		log:     zap.L().With(zap.String("component", "decode.shapefile")),
	}, nil
}

// Next returns the next record as a row. Records with no usable geometry are
// skipped, not fatal.
func (sr *ShapefileReader) Next() (conform.Row, error) {
	for sr.shp.Next() {
		_, shape := sr.shp.Shape()

		lon, lat, ok := centroid(shapeToGeom(shape))
		if !ok {
			sr.skipped++
			continue
		}

		fields := make(map[string]any, len(sr.fields))
		for i, name := range sr.fields {
			value := strings.TrimRight(sr.shp.Attribute(i), "\x00")
			if decoded, err := sr.decoder.String(value); err == nil {
				value = decoded
			}
			fields[name] = value
		}

		row := conform.NewMapRow(fields)
		row.SetCentroid(lon, lat)
		return row, nil
	}

	if err := sr.shp.Err(); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "decode: read shapefile record")
	}
	if sr.skipped > 0 {
		sr.log.Debug("skipped geometry-less shapefile records", zap.Int("skipped", sr.skipped))
	}
	return nil, io.EOF
}

func (sr *ShapefileReader) Close() error {
	return sr.shp.Close()
}
