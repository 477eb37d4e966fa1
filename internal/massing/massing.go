// Package massing runs the compliance solver for a requested building mass
// on a resolved parcel. The solver is a deterministic pipeline of immutable
// steps: a naive footprint from the setbacks, a coverage correction, a FAR
// correction, and a finalize step that checks the remaining constraints and
// emits the box geometry. It is not a general optimizer; corrections only
// shrink the design, never grow it.
package massing

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/zoning"
)

// Solver computes mass studies against the zoning rules.
type Solver struct {
	rules *zoning.Rules
	now   func() time.Time
	newID func() uuid.UUID
}

// NewSolver creates a solver over the given rules; nil means the built-in
// table.
func NewSolver(rules *zoning.Rules) *Solver {
	if rules == nil {
		rules = zoning.NewRules()
	}
	return &Solver{
		rules: rules,
		now:   time.Now,
		newID: uuid.New,
	}
}

// design is the solver's working state. Every pipeline step consumes one and
// returns a new value; nothing is mutated across steps.
type design struct {
	parcelArea float64
	limits     zoning.Limits
	setbacks   model.Setbacks

	width, depth float64
	footprint    float64
	coverage     float64 // percent

	floors         int
	totalFloorArea float64
	far            float64 // percent

	coverageCorrected bool
	farCorrected      bool
}

// Solve runs the pipeline for the requested design on a resolved parcel.
// The parcel must carry a usable area; the use zone falls back to the urban
// residential default when unresolved.
func (s *Solver) Solve(land *model.LandAttributes, input model.MassDesignInput) (*model.MassStudy, error) {
	if land == nil || land.Area <= 0 {
		return nil, apperr.New(apperr.KindParcelNotFound, "massing: parcel has no resolved area")
	}

	useZone := land.UseZone
	if useZone == "" {
		useZone = "제2종일반주거지역"
	}
	limits := s.rules.LimitsFor(useZone, land.IsSettlement)

	naive, err := naiveFootprint(land.Area, limits, input)
	if err != nil {
		return nil, err
	}
	corrected := correctCoverage(naive)
	final := correctFAR(withFloors(corrected, input.TargetFloors))

	return s.emit(land, useZone, input, final), nil
}

// naiveFootprint models the parcel as a square of side sqrt(area) and
// subtracts the setbacks along each axis pair.
func naiveFootprint(parcelArea float64, limits zoning.Limits, input model.MassDesignInput) (design, error) {
	side := math.Sqrt(parcelArea)
	width := side - input.Setbacks.Left - input.Setbacks.Right
	depth := side - input.Setbacks.Front - input.Setbacks.Back
	if width <= 0 || depth <= 0 {
		return design{}, apperr.New(apperr.KindInvalidSetbacks,
			"massing: setbacks leave no buildable area")
	}

	footprint := width * depth
	return design{
		parcelArea: parcelArea,
		limits:     limits,
		setbacks:   input.Setbacks,
		width:      width,
		depth:      depth,
		footprint:  footprint,
		coverage:   footprint / parcelArea * 100,
	}, nil
}

// correctCoverage shrinks the footprint uniformly when it exceeds the legal
// coverage. The scale factor is sqrt of the area ratio so both dimensions
// shrink linearly; the resulting coverage equals the limit by construction.
func correctCoverage(d design) design {
	if d.coverage <= d.limits.Coverage {
		return d
	}

	maxFootprint := d.parcelArea * d.limits.Coverage / 100
	scale := math.Sqrt(maxFootprint / d.footprint)

	out := d
	out.width = d.width * scale
	out.depth = d.depth * scale
	out.footprint = out.width * out.depth
	out.coverage = d.limits.Coverage
	out.coverageCorrected = true
	return out
}

// withFloors applies the requested floor count to the footprint.
func withFloors(d design, floors int) design {
	out := d
	out.floors = floors
	out.totalFloorArea = d.footprint * float64(floors)
	out.far = out.totalFloorArea / d.parcelArea * 100
	return out
}

// correctFAR truncates the floor count when the total floor area exceeds
// the legal FAR. Truncation, not rounding: the corrected design must stay
// under the limit. Floors are never corrected upward.
func correctFAR(d design) design {
	if d.far <= d.limits.FAR {
		return d
	}

	maxFloorArea := d.parcelArea * d.limits.FAR / 100

	out := d
	out.floors = int(maxFloorArea / d.footprint)
	out.totalFloorArea = d.footprint * float64(out.floors)
	out.far = out.totalFloorArea / d.parcelArea * 100
	out.farCorrected = true
	return out
}

// emit checks the remaining constraints and rounds for output. Only this
// step rounds; the correction math upstream runs on exact values.
func (s *Solver) emit(land *model.LandAttributes, useZone string, input model.MassDesignInput, d design) *model.MassStudy {
	height := float64(d.floors) * zoning.DefaultFloorHeight

	requiredNorth := zoning.NorthSetback(height, useZone)
	heightOK := true
	if floorCap := zoning.FloorCap(d.limits.HeightLimit); floorCap > 0 {
		heightOK = d.floors <= floorCap
	}

	return &model.MassStudy{
		ID:           s.newID(),
		PNU:          land.PNU,
		BuildingType: input.BuildingType,
		TargetFloors: input.TargetFloors,
		Setbacks:     input.Setbacks,

		BuildingArea:   round2(d.footprint),
		TotalFloorArea: round2(d.totalFloorArea),
		CoverageRatio:  round2(d.coverage),
		FARRatio:       round2(d.far),
		Floors:         d.floors,
		Height:         round1(height),

		LegalCheck: model.LegalCheck{
			CoverageOK: true, // post-correction by construction
			FAROK:      true,
			HeightOK:   heightOK,
			SetbackOK:  input.Setbacks.Back >= requiredNorth,
		},
		LegalLimits: model.RegulationLimits{
			Coverage:    d.limits.Coverage,
			FAR:         d.limits.FAR,
			HeightLimit: d.limits.HeightLimit,
			Note:        d.limits.Note,
		},
		Geometry: boxGeometry(d, height, land),

		CreatedAt: s.now(),
	}
}

// boxGeometry positions the box center-anchored: the horizontal center is
// offset by the asymmetric setbacks and Y sits at half the height.
func boxGeometry(d design, height float64, land *model.LandAttributes) model.BoxGeometry {
	return model.BoxGeometry{
		Type:   "box",
		Format: "three.js",
		Dimensions: model.BoxDimensions{
			Width:  round2(d.width),
			Height: round2(height),
			Depth:  round2(d.depth),
		},
		Position: model.BoxPosition{
			X: (d.setbacks.Left - d.setbacks.Right) / 2,
			Y: height / 2,
			Z: (d.setbacks.Front - d.setbacks.Back) / 2,
		},
		Land: model.Coordinate{
			Lng: land.Longitude,
			Lat: land.Latitude,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
