// Package decode reads extracted source files into conform rows. It covers
// the formats the conversion pipeline decodes itself (csv, geojson,
// shapefile); gdb, gpkg, and xml sources arrive pre-decoded from an external
// converter.
package decode

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/openaddr-tools/conform-cli/internal/conform"
	"github.com/openaddr-tools/conform-cli/internal/source"
)

// Reader yields decoded source rows. Next returns io.EOF after the last row.
type Reader interface {
	conform.RowSource
	Close() error
}

// Open selects a decoder for the layer source's declared format.
func Open(ls *source.LayerSource, path string) (Reader, error) {
	switch ls.Conform.Format {
	case "csv":
		return OpenCSV(path, ls.Conform)
	case "geojson":
		return OpenGeoJSON(path)
	case "shapefile":
		return OpenShapefile(path, ls.Conform)
	case "":
		return nil, eris.New("decode: conform declares no format")
	default:
		return nil, eris.Errorf("decode: format %q requires an external converter", ls.Conform.Format)
	}
}

// FindSourcePath picks the actual data file among the paths extracted from a
// source archive, honoring the conform "file" tag when several candidates
// share the expected extension.
func FindSourcePath(cs source.ConformSpec, paths []string) (string, error) {
	var exts []string
	switch cs.Format {
	case "shapefile":
		exts = []string{".shp"}
	case "geojson":
		exts = []string{".json", ".geojson"}
	case "csv":
		exts = []string{".csv"}
	default:
		return "", eris.Errorf("decode: cannot locate data file for format %q", cs.Format)
	}

	var candidates []string
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		for _, want := range exts {
			if ext == want {
				candidates = append(candidates, p)
				break
			}
		}
	}

	switch {
	case len(candidates) == 0 && cs.Format == "csv" && len(paths) > 0:
		// CSV archives are a mess; fall back to the first file.
		candidates = paths
	case len(candidates) == 0:
		return "", eris.Errorf("decode: no %s file found among %d extracted files", cs.Format, len(paths))
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if cs.File == "" {
		return "", eris.Errorf("decode: %d %s candidates but conform names no file", len(candidates), cs.Format)
	}
	for _, c := range candidates {
		if filepath.Base(c) == filepath.Base(cs.File) {
			return c, nil
		}
	}
	return "", eris.Errorf("decode: conform names file %q but it was not extracted", cs.File)
}
