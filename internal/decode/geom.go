package decode

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// centroid derives a representative longitude/latitude pair for a geometry.
// Address points pass through directly; polygons and lines use their
// centroid, falling back to the bounds center for degenerate shapes.
func centroid(g geom.T) (lon, lat float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}

	if p, isPoint := g.(*geom.Point); isPoint {
		c := p.Coords()
		if len(c) < 2 {
			return 0, 0, false
		}
		return c[0], c[1], true
	}

	if c, err := xy.Centroid(g); err == nil && len(c) >= 2 {
		return c[0], c[1], true
	}

	b := g.Bounds()
	if b == nil || b.IsEmpty() {
		return 0, 0, false
	}
	return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2, true
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Unsupported
// shape types return nil.
func shapeToGeom(s shp.Shape) geom.T {
	switch shape := s.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{shape.X, shape.Y})
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{shape.X, shape.Y})
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{shape.X, shape.Y})
	case *shp.PolyLine:
		return polyLineToMultiLineString(shape)
	case *shp.Polygon:
		return polygonToMultiPolygon(shape)
	default:
		return nil
	}
}

// polyLineToMultiLineString converts a shapefile PolyLine part list to a
// MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		flat := partCoords(pl.Parts, pl.Points, i, pl.NumParts)
		if len(flat) == 0 {
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon converts shapefile polygon rings to a MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		flat := partCoords(p.Parts, p.Points, i, p.NumParts)
		if len(flat) == 0 {
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// partCoords flattens one part's points into go-geom flat coordinates.
func partCoords(parts []int32, points []shp.Point, i, numParts int32) []float64 {
	start := parts[i]
	end := int32(len(points))
	if i+1 < numParts {
		end = parts[i+1]
	}

	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}
