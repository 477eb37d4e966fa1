// Package model holds the shared domain records produced by the resolver and
// the mass-study solver.
package model

import "time"

// Coordinate is a WGS84 longitude/latitude pair.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// BBox is a geographic bounding box in raw (unprojected) coordinates.
type BBox struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Center returns the midpoint of the box.
func (b BBox) Center() Coordinate {
	return Coordinate{
		Lng: (b.MinX + b.MaxX) / 2,
		Lat: (b.MinY + b.MaxY) / 2,
	}
}

// ParcelGeometry is the parcel outline plus derived measures.
type ParcelGeometry struct {
	Ring   []Coordinate `json:"ring"`
	BBox   BBox         `json:"bbox"`
	Width  float64      `json:"width"`  // metric, east-west
	Depth  float64      `json:"depth"`  // metric, north-south
	Center Coordinate   `json:"center"` // bbox midpoint, not area-weighted
}

// ZoneDesignation is one entry from the land-use plan.
type ZoneDesignation struct {
	Name string `json:"name"`
	Law  string `json:"law,omitempty"`
}

// Regulation is one behavioral land-use restriction applying to a parcel.
type Regulation struct {
	ZoneName    string `json:"zone_name"`
	Restriction string `json:"restriction"`
	LawName     string `json:"law_name"`
}

// Building is one building-registry entry on the parcel.
type Building struct {
	Name           string  `json:"name,omitempty"`
	MainPurpose    string  `json:"main_purpose"`
	EtcPurpose     string  `json:"etc_purpose,omitempty"`
	TotalArea      float64 `json:"total_area"`
	BuildingArea   float64 `json:"building_area"`
	PlatArea       float64 `json:"plat_area"`
	FARCountArea   float64 `json:"far_count_area"`
	CoverageRatio  float64 `json:"coverage_ratio"`
	FARRatio       float64 `json:"far_ratio"`
	Height         float64 `json:"height"`
	Structure      string  `json:"structure,omitempty"`
	FloorsAbove    int     `json:"floors_above"`
	FloorsBelow    int     `json:"floors_below"`
	ParkingCount   int     `json:"parking_count"`
	HouseholdCount int     `json:"household_count"`
	ApprovalDate   string  `json:"approval_date,omitempty"`
}

// RoadInfo describes a road adjacent to the parcel.
type RoadInfo struct {
	Direction string   `json:"direction"`
	Name      string   `json:"name,omitempty"`
	Address   string   `json:"address,omitempty"`
	Angle     *float64 `json:"angle,omitempty"` // undirected line orientation, degrees
}

// LandAttributes is the merged, best-effort view of a parcel across all
// external sources. Once a field is set by a higher-priority source it is
// never overwritten by a lower one.
type LandAttributes struct {
	PNU          string `json:"pnu"`
	AddressJibun string `json:"address_jibun"`
	AddressRoad  string `json:"address_road,omitempty"`
	Region       string `json:"region,omitempty"`       // 시도
	SubRegion    string `json:"sub_region,omitempty"`   // 시군구
	SubDistrict  string `json:"sub_district,omitempty"` // 동/읍/면
	Jibun        string `json:"jibun,omitempty"`

	Area              float64 `json:"area"` // m²
	UseZone           string  `json:"use_zone"`
	IsSettlement      bool    `json:"is_settlement"`
	LandCategory      string  `json:"land_category"`
	OfficialLandPrice float64 `json:"official_land_price"`
	Ownership         string  `json:"ownership,omitempty"`
	LandUseSituation  string  `json:"land_use_situation,omitempty"`
	TerrainHeight     string  `json:"terrain_height,omitempty"`
	TerrainShape      string  `json:"terrain_shape,omitempty"`
	RoadSide          string  `json:"road_side,omitempty"`

	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	UseZones    []ZoneDesignation `json:"use_zones,omitempty"`
	Regulations []Regulation      `json:"regulations,omitempty"`
	Geometry    *ParcelGeometry   `json:"geometry,omitempty"`

	BuildingExists bool       `json:"building_exists"`
	Buildings      []Building `json:"buildings,omitempty"`

	ResolvedAt time.Time `json:"resolved_at"`
}

// RegulationLimits is the legal envelope derived from a use zone. It is
// always recomputed from its inputs, never persisted on its own.
type RegulationLimits struct {
	Coverage    float64 `json:"coverage"` // percent
	FAR         float64 `json:"far"`      // percent
	HeightLimit string  `json:"height_limit,omitempty"`
	Note        string  `json:"note,omitempty"`
}

// RegulationSummary extends the limits with the absolute maxima for a
// specific parcel area.
type RegulationSummary struct {
	PNU             string           `json:"pnu"`
	Address         string           `json:"address,omitempty"`
	ParcelArea      float64          `json:"parcel_area"`
	UseZone         string           `json:"use_zone"`
	Limits          RegulationLimits `json:"limits"`
	NorthSetback    float64          `json:"north_setback"`
	MaxBuildingArea float64          `json:"max_building_area"`
	MaxFloorArea    float64          `json:"max_floor_area"`
}
