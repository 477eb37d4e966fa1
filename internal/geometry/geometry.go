// Package geometry implements the parcel-scale polygon math used by the
// resolver: shoelace area over a local equirectangular projection, bounding
// boxes, centroid proxies, and direction/bearing classification.
//
// The projection (111320 m per degree of latitude, scaled by cos(lat) for
// longitude) is an approximation valid for extents of tens to hundreds of
// meters. It is not geodesically exact.
package geometry

import (
	"math"

	"github.com/jejulab/landmass/internal/model"
)

const metersPerDegLat = 111320.0

// MetersPerDegLat is the equirectangular meters-per-degree of latitude used
// across all projections in this package.
func MetersPerDegLat() float64 {
	return metersPerDegLat
}

// MetersPerDegLng returns the east-west meters per degree of longitude at
// the given latitude.
func MetersPerDegLng(lat float64) float64 {
	return metersPerDegLat * math.Cos(lat*math.Pi/180)
}

// AreaM2 computes the polygon area in square meters via the shoelace formula
// on coordinates projected at the ring's mean vertex latitude. Rings with
// fewer than 3 distinct vertices yield 0. Closed and open rings are both
// accepted.
func AreaM2(ring []model.Coordinate) float64 {
	if countDistinct(ring) < 3 {
		return 0
	}

	var latSum float64
	for _, c := range ring {
		latSum += c.Lat
	}
	meanLat := latSum / float64(len(ring))

	mLng := MetersPerDegLng(meanLat)

	type xy struct{ x, y float64 }
	pts := make([]xy, len(ring))
	for i, c := range ring {
		pts[i] = xy{x: c.Lng * mLng, y: c.Lat * metersPerDegLat}
	}

	var area float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].x * pts[j].y
		area -= pts[j].x * pts[i].y
	}
	return math.Abs(area) / 2
}

func countDistinct(ring []model.Coordinate) int {
	seen := make(map[model.Coordinate]struct{}, len(ring))
	for _, c := range ring {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// BoundingBox returns the bbox of the ring in raw coordinates. ok is false
// for an empty ring.
func BoundingBox(ring []model.Coordinate) (model.BBox, bool) {
	if len(ring) == 0 {
		return model.BBox{}, false
	}
	b := model.BBox{
		MinX: ring[0].Lng, MaxX: ring[0].Lng,
		MinY: ring[0].Lat, MaxY: ring[0].Lat,
	}
	for _, c := range ring[1:] {
		b.MinX = math.Min(b.MinX, c.Lng)
		b.MaxX = math.Max(b.MaxX, c.Lng)
		b.MinY = math.Min(b.MinY, c.Lat)
		b.MaxY = math.Max(b.MaxY, c.Lat)
	}
	return b, true
}

// CentroidOfBBox returns the bbox midpoint, used as a cheap proxy for the
// polygon centroid.
func CentroidOfBBox(b model.BBox) model.Coordinate {
	return b.Center()
}

// Dimensions converts a bbox to metric width (east-west) and depth
// (north-south) at the bbox's own center latitude.
func Dimensions(b model.BBox) (width, depth float64) {
	centerLat := (b.MinY + b.MaxY) / 2
	width = (b.MaxX - b.MinX) * MetersPerDegLng(centerLat)
	depth = (b.MaxY - b.MinY) * metersPerDegLat
	return width, depth
}

// ClassifyDirection returns "north", "south", "east" or "west" for the point
// relative to center, taking the dominant axis. Ties favor the latitude
// axis; this tie-break is load-bearing for deterministic road assignment.
func ClassifyDirection(center, pt model.Coordinate) string {
	dx := pt.Lng - center.Lng
	dy := pt.Lat - center.Lat
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return "east"
		}
		return "west"
	}
	if dy > 0 {
		return "north"
	}
	return "south"
}

// BearingAngle returns the orientation of the line p1→p2 in degrees, with the
// two points converted to local meters at refLat. The result is normalized by
// repeatedly folding 180° so it expresses an undirected line orientation,
// not a compass bearing.
func BearingAngle(p1, p2 model.Coordinate, refLat float64) float64 {
	dxM := (p2.Lng - p1.Lng) * MetersPerDegLng(refLat)
	dyM := (p2.Lat - p1.Lat) * metersPerDegLat

	angle := math.Atan2(dyM, dxM) * 180 / math.Pi
	for angle > 90 {
		angle -= 180
	}
	for angle < -90 {
		angle += 180
	}
	return angle
}
