package decode

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/openaddr-tools/conform-cli/internal/conform"
)

// GeoJSONReader streams features from a FeatureCollection without loading
// the whole document. Feature properties become row fields; the geometry
// centroid supplies the coordinate pair.
type GeoJSONReader struct {
	f       *os.File
	dec     *json.Decoder
	skipped int
	log     *zap.Logger
}

// OpenGeoJSON opens a GeoJSON source and positions the decoder at the start
// of the features array.
func OpenGeoJSON(path string) (*GeoJSONReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "decode: open geojson %s", path)
	}

	dec := json.NewDecoder(f)
	if err := seekFeatures(dec); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &GeoJSONReader{
		f:   f,
		dec: dec,
		log: zap.L().With(zap.String("component", "decode.geojson")),
	}, nil
}

// seekFeatures advances the decoder past the opening bracket of the features
// array, accepting either a FeatureCollection or a bare feature array.
func seekFeatures(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "decode: geojson document")
	}

	if tok == json.Delim('[') {
		return nil
	}
	if tok != json.Delim('{') {
		return eris.New("decode: geojson document is not an object or array")
	}

	for {
		tok, err = dec.Token()
		if err != nil {
			return eris.Wrap(err, "decode: geojson missing features array")
		}
		if key, ok := tok.(string); ok && key == "features" {
			open, openErr := dec.Token()
			if openErr != nil {
				return eris.Wrap(openErr, "decode: geojson features array")
			}
			if open != json.Delim('[') {
				return eris.New("decode: geojson features is not an array")
			}
			return nil
		}
		// Skip this key's value wholesale.
		var skip json.RawMessage
		if err = dec.Decode(&skip); err != nil {
			return eris.Wrap(err, "decode: geojson document")
		}
	}
}

// Next returns the next feature as a row. Features without geometry are
// skipped, not fatal.
func (gr *GeoJSONReader) Next() (conform.Row, error) {
	for gr.dec.More() {
		var feature geojson.Feature
		if err := gr.dec.Decode(&feature); err != nil {
			return nil, eris.Wrap(err, "decode: geojson feature")
		}

		lon, lat, ok := centroid(feature.Geometry)
		if !ok {
			gr.skipped++
			continue
		}

		row := conform.NewMapRow(feature.Properties)
		row.SetCentroid(lon, lat)
		return row, nil
	}

	if gr.skipped > 0 {
		gr.log.Debug("skipped geometry-less features", zap.Int("skipped", gr.skipped))
	}
	return nil, io.EOF
}

func (gr *GeoJSONReader) Close() error {
	return gr.f.Close()
}
