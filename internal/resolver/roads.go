package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/cache"
	"github.com/jejulab/landmass/internal/geometry"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/provider"
)

// roadBufferMeters expands the parcel box for the cadastre adjacency query;
// 50 m reaches across the widest local road.
const roadBufferMeters = 50.0

// roadProbeOffsetMeters is the probe distance past the boundary used when
// pinning down which side of the parcel a named road runs along.
const roadProbeOffsetMeters = 8.0

const roadCategory = "도"

// NearbyRoads finds the roads around a resolved parcel. Road parcels from
// the cadastre are the primary source; when none are found the road-name
// probes take over. Results carry the direction relative to the parcel.
func (r *Resolver) NearbyRoads(ctx context.Context, land *model.LandAttributes) ([]model.RoadInfo, error) {
	center, bbox := parcelFrame(land)
	if center.Lng == 0 && center.Lat == 0 {
		return nil, nil
	}

	type payload struct {
		Roads []model.RoadInfo `json:"roads"`
	}
	out, err := fetchCached(ctx, r.cache, cache.PNUKey("nearby", land.PNU), cache.TTLNearby,
		func(ctx context.Context) (*payload, error) {
			roads := r.adjacentRoadParcels(ctx, land.PNU, center, bbox)
			if len(roads) == 0 && r.src.Roads != nil {
				roads = r.probeRoadNames(ctx, center, bbox)
			}
			return &payload{Roads: roads}, nil
		})
	if err != nil {
		return nil, err
	}
	return out.Roads, nil
}

// parcelFrame returns the parcel center and, when geometry was resolved,
// its bounding box.
func parcelFrame(land *model.LandAttributes) (model.Coordinate, *model.BBox) {
	if land.Geometry != nil {
		box := land.Geometry.BBox
		return land.Geometry.Center, &box
	}
	return model.Coordinate{Lng: land.Longitude, Lat: land.Latitude}, nil
}

// adjacentRoadParcels pulls every cadastre parcel around the box and keeps
// the ones categorized as road, classified by which side of the parcel they
// sit on.
func (r *Resolver) adjacentRoadParcels(ctx context.Context, parcelID string, center model.Coordinate, bbox *model.BBox) []model.RoadInfo {
	if r.src.Adjacency == nil || bbox == nil {
		return nil
	}

	latBuf := roadBufferMeters / geometry.MetersPerDegLat()
	lngBuf := roadBufferMeters / geometry.MetersPerDegLng(center.Lat)
	expanded := model.BBox{
		MinX: bbox.MinX - lngBuf,
		MinY: bbox.MinY - latBuf,
		MaxX: bbox.MaxX + lngBuf,
		MaxY: bbox.MaxY + latBuf,
	}

	parcels, err := r.src.Adjacency.AdjacentParcels(ctx, expanded)
	if err != nil {
		zap.L().Warn("resolver: adjacency source", zap.String("pnu", parcelID), zap.Error(err))
		return nil
	}

	var roads []model.RoadInfo
	for _, p := range parcels {
		if p.PNU == parcelID || p.Category != roadCategory {
			continue
		}
		roads = append(roads, model.RoadInfo{
			Direction: geometry.ClassifyDirection(center, meanVertex(p.Ring)),
			Address:   p.Jibun,
		})
	}
	return roads
}

// probeRoadNames locates the road serving the parcel by name. The road-name
// address at the parcel center names the front road; probing just outside
// the boundary in eight compass directions tells us which side it runs
// along and, with two or more hits, its orientation.
func (r *Resolver) probeRoadNames(ctx context.Context, center model.Coordinate, bbox *model.BBox) []model.RoadInfo {
	front, err := r.roadByCoord(ctx, center.Lng, center.Lat)
	if err != nil || front.Name == "" {
		// no registered road address; fall back to boundary probes alone
		return r.src.Roads.NearestRoads(ctx, center, bbox, nil)
	}

	road := model.RoadInfo{
		Direction: "north",
		Name:      front.Name,
		Address:   front.Address,
	}
	if bbox == nil {
		return []model.RoadInfo{road}
	}

	hits := r.probeMatches(ctx, front.Name, center, *bbox)
	if dir, ok := dominantDirection(hits); ok {
		road.Direction = dir
	}
	if angle, ok := roadOrientation(hits, center.Lat); ok {
		road.Angle = &angle
	}
	return []model.RoadInfo{road}
}

// roadByCoord caches the road-name address at a coordinate. Probe points are
// never cached; only the parcel-center lookup repeats across requests.
func (r *Resolver) roadByCoord(ctx context.Context, lng, lat float64) (*provider.RoadResult, error) {
	return fetchCached(ctx, r.cache, cache.CoordKey("road", lng, lat), cache.TTLAddressSearch,
		func(ctx context.Context) (*provider.RoadResult, error) {
			return r.src.Roads.RoadByCoord(ctx, lng, lat)
		})
}

// probeMatches checks eight points just outside the parcel boundary and
// returns the ones whose road name matches.
func (r *Resolver) probeMatches(ctx context.Context, name string, center model.Coordinate, bbox model.BBox) map[string]model.Coordinate {
	latOff := roadProbeOffsetMeters / geometry.MetersPerDegLat()
	lngOff := roadProbeOffsetMeters / geometry.MetersPerDegLng(center.Lat)

	probes := []struct {
		compass string
		point   model.Coordinate
	}{
		{"N", model.Coordinate{Lng: center.Lng, Lat: bbox.MaxY + latOff}},
		{"NE", model.Coordinate{Lng: bbox.MaxX + lngOff*0.7, Lat: bbox.MaxY + latOff*0.7}},
		{"E", model.Coordinate{Lng: bbox.MaxX + lngOff, Lat: center.Lat}},
		{"SE", model.Coordinate{Lng: bbox.MaxX + lngOff*0.7, Lat: bbox.MinY - latOff*0.7}},
		{"S", model.Coordinate{Lng: center.Lng, Lat: bbox.MinY - latOff}},
		{"SW", model.Coordinate{Lng: bbox.MinX - lngOff*0.7, Lat: bbox.MinY - latOff*0.7}},
		{"W", model.Coordinate{Lng: bbox.MinX - lngOff, Lat: center.Lat}},
		{"NW", model.Coordinate{Lng: bbox.MinX - lngOff*0.7, Lat: bbox.MaxY + latOff*0.7}},
	}

	hits := map[string]model.Coordinate{}
	for _, probe := range probes {
		res, err := r.src.Roads.RoadByCoord(ctx, probe.point.Lng, probe.point.Lat)
		if err != nil || res.Name != name {
			continue
		}
		hits[probe.compass] = probe.point
	}
	return hits
}

// dominantDirection collapses the compass hits to one of the four cardinal
// sides, preferring north, then south, east, west.
func dominantDirection(hits map[string]model.Coordinate) (string, bool) {
	toCardinal := map[string]string{
		"N": "north", "NE": "north", "NW": "north",
		"S": "south", "SE": "south", "SW": "south",
		"E": "east", "W": "west",
	}
	found := map[string]bool{}
	for compass := range hits {
		found[toCardinal[compass]] = true
	}
	for _, dir := range []string{"north", "south", "east", "west"} {
		if found[dir] {
			return dir, true
		}
	}
	return "", false
}

// roadOrientation estimates the road's line orientation from the two
// farthest matching probe points.
func roadOrientation(hits map[string]model.Coordinate, refLat float64) (float64, bool) {
	if len(hits) < 2 {
		return 0, false
	}

	points := make([]model.Coordinate, 0, len(hits))
	for _, p := range hits {
		points = append(points, p)
	}

	var p1, p2 model.Coordinate
	maxDist := -1.0
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			dx := points[i].Lng - points[j].Lng
			dy := points[i].Lat - points[j].Lat
			if d := dx*dx + dy*dy; d > maxDist {
				maxDist = d
				p1, p2 = points[i], points[j]
			}
		}
	}
	return geometry.BearingAngle(p1, p2, refLat), true
}

func meanVertex(ring []model.Coordinate) model.Coordinate {
	if len(ring) == 0 {
		return model.Coordinate{}
	}
	var sumLng, sumLat float64
	for _, c := range ring {
		sumLng += c.Lng
		sumLat += c.Lat
	}
	n := float64(len(ring))
	return model.Coordinate{Lng: sumLng / n, Lat: sumLat / n}
}
