package model

import (
	"time"

	"github.com/google/uuid"
)

// Setbacks are the per-side distances from the parcel boundary, in meters.
type Setbacks struct {
	Front float64 `json:"front"`
	Back  float64 `json:"back"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// DefaultSetbacks mirrors the distances applied when a request omits them.
func DefaultSetbacks() Setbacks {
	return Setbacks{Front: 3.0, Back: 2.0, Left: 1.5, Right: 1.5}
}

// MassDesignInput is the requested design for a mass study.
type MassDesignInput struct {
	PNU          string   `json:"pnu"`
	BuildingType string   `json:"building_type"`
	TargetFloors int      `json:"target_floors"`
	Setbacks     Setbacks `json:"setbacks"`
}

// LegalCheck holds the per-constraint compliance flags of a mass study.
type LegalCheck struct {
	CoverageOK bool `json:"coverage_ok"`
	FAROK      bool `json:"far_ok"`
	HeightOK   bool `json:"height_ok"`
	SetbackOK  bool `json:"setback_ok"`
}

// BoxDimensions are the width/height/depth of the massing box, in meters.
type BoxDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// BoxPosition is the box center. The convention is center-anchored: Y is
// height/2, X and Z carry the asymmetric setback offsets.
type BoxPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// BoxGeometry is the simplified 3D description of the massing result.
type BoxGeometry struct {
	Type       string        `json:"type"`
	Format     string        `json:"format"`
	Dimensions BoxDimensions `json:"dimensions"`
	Position   BoxPosition   `json:"position"`
	Land       Coordinate    `json:"land"`
}

// MassStudy is the immutable outcome of one solver invocation.
type MassStudy struct {
	ID           uuid.UUID `json:"id"`
	PNU          string    `json:"pnu"`
	BuildingType string    `json:"building_type"`
	TargetFloors int       `json:"target_floors"`
	Setbacks     Setbacks  `json:"setbacks"`

	BuildingArea   float64 `json:"building_area"`
	TotalFloorArea float64 `json:"total_floor_area"`
	CoverageRatio  float64 `json:"coverage_ratio"`
	FARRatio       float64 `json:"far_ratio"`
	Floors         int     `json:"floors"`
	Height         float64 `json:"height"`

	LegalCheck  LegalCheck       `json:"legal_check"`
	LegalLimits RegulationLimits `json:"legal_limits"`
	Geometry    BoxGeometry      `json:"geometry"`

	CreatedAt time.Time `json:"created_at"`
}
