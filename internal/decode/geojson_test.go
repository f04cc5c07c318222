package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const featureCollection = `{
	"type": "FeatureCollection",
	"name": "city_addresses",
	"crs": {"type": "name", "properties": {"name": "EPSG:4326"}},
	"features": [
		{
			"type": "Feature",
			"properties": {"HOUSENUM": "12", "STREETNAME": "ELM ST", "ZIP": 97301},
			"geometry": {"type": "Point", "coordinates": [-123.0351, 44.9429]}
		},
		{
			"type": "Feature",
			"properties": {"HOUSENUM": "13", "STREETNAME": "NO GEOMETRY RD"},
			"geometry": null
		},
		{
			"type": "Feature",
			"properties": {"HOUSENUM": "14", "STREETNAME": "OAK AVE"},
			"geometry": {"type": "Point", "coordinates": [-123.0911, 44.0521]}
		}
	]
}`

func TestOpenGeoJSON_FeatureCollection(t *testing.T) {
	path := writeFile(t, "addr.geojson", []byte(featureCollection))

	r, err := OpenGeoJSON(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	rows := drain(t, r)
	// The geometry-less feature is skipped.
	require.Len(t, rows, 2)

	assert.Equal(t, "12", fieldOf(t, rows[0], "housenum"))
	assert.Equal(t, "97301", fieldOf(t, rows[0], "zip"))

	lon, lat, ok := rows[0].Centroid()
	require.True(t, ok)
	assert.InDelta(t, -123.0351, lon, 1e-9)
	assert.InDelta(t, 44.9429, lat, 1e-9)

	assert.Equal(t, "14", fieldOf(t, rows[1], "housenum"))
}

func TestOpenGeoJSON_BareFeatureArray(t *testing.T) {
	bare := `[
		{"type": "Feature", "properties": {"n": "1"}, "geometry": {"type": "Point", "coordinates": [1, 2]}}
	]`
	path := writeFile(t, "addr.json", []byte(bare))

	r, err := OpenGeoJSON(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	rows := drain(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", fieldOf(t, rows[0], "n"))
}

func TestOpenGeoJSON_PolygonCentroid(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [{
		"type": "Feature",
		"properties": {"parcel": "A-1"},
		"geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]}
	}]}`
	path := writeFile(t, "parcels.geojson", []byte(doc))

	r, err := OpenGeoJSON(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	rows := drain(t, r)
	require.Len(t, rows, 1)

	lon, lat, ok := rows[0].Centroid()
	require.True(t, ok)
	assert.InDelta(t, 2.0, lon, 1e-9)
	assert.InDelta(t, 2.0, lat, 1e-9)
}

func TestOpenGeoJSON_NotAFeatureDocument(t *testing.T) {
	path := writeFile(t, "bad.geojson", []byte(`"just a string"`))

	_, err := OpenGeoJSON(path)
	assert.Error(t, err)
}

func TestOpenGeoJSON_MissingFeaturesKey(t *testing.T) {
	path := writeFile(t, "bad.geojson", []byte(`{"type": "FeatureCollection"}`))

	_, err := OpenGeoJSON(path)
	assert.Error(t, err)
}
