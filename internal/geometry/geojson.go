package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jejulab/landmass/internal/model"
)

// RingFromGeoJSON decodes a provider geometry payload (Polygon or
// MultiPolygon, as the cadastral sources emit) and returns its outer ring.
func RingFromGeoJSON(data []byte) ([]model.Coordinate, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "geometry: decode geojson")
	}
	ring := OuterRing(g)
	if len(ring) == 0 {
		return nil, eris.New("geometry: no outer ring")
	}
	return ring, nil
}

// OuterRing extracts the outer ring coordinates from Polygon or MultiPolygon
// nesting. MultiPolygons contribute the first polygon's exterior only; holes
// are ignored throughout. Returns nil for unsupported or empty geometries.
func OuterRing(g geom.T) []model.Coordinate {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		return coordsToRing(t.LinearRing(0).Coords())
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil
		}
		p := t.Polygon(0)
		if p.NumLinearRings() == 0 {
			return nil
		}
		return coordsToRing(p.LinearRing(0).Coords())
	case *geom.LinearRing:
		return coordsToRing(t.Coords())
	default:
		return nil
	}
}

func coordsToRing(coords []geom.Coord) []model.Coordinate {
	ring := make([]model.Coordinate, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		ring = append(ring, model.Coordinate{Lng: c[0], Lat: c[1]})
	}
	return ring
}

// DeriveGeometry builds a ParcelGeometry (bbox, metric dimensions, centroid
// proxy) from a ring. Returns nil when the ring is empty.
func DeriveGeometry(ring []model.Coordinate) *model.ParcelGeometry {
	bbox, ok := BoundingBox(ring)
	if !ok {
		return nil
	}
	width, depth := Dimensions(bbox)
	return &model.ParcelGeometry{
		Ring:   ring,
		BBox:   bbox,
		Width:  round2(width),
		Depth:  round2(depth),
		Center: CentroidOfBBox(bbox),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
