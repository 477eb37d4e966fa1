// Package zoning holds the use-zone regulation table and the derived rules:
// coverage/FAR limits, settlement-district overrides, the north daylight
// setback, and parking requirements.
//
// The table is a simplified approximation of the Jeju building regulations;
// it is process-wide read-only data, loaded once and never mutated.
package zoning

import (
	"math"
	"strings"
)

// Limits is one row of the regulation table.
type Limits struct {
	Coverage    float64 `yaml:"coverage" json:"coverage"` // percent
	FAR         float64 `yaml:"far" json:"far"`           // percent
	HeightLimit string  `yaml:"height_limit,omitempty" json:"height_limit,omitempty"`
	Note        string  `yaml:"note,omitempty" json:"note,omitempty"`
}

// DefaultFloorHeight is the assumed story height in meters.
const DefaultFloorHeight = 3.0

// defaultLimits applies when the use zone is not in the table.
var defaultLimits = Limits{Coverage: 20, FAR: 80}

// Settlement-district overrides replace the base zone's entry entirely.
var (
	settlementGreen   = Limits{Coverage: 50, FAR: 100, Note: "취락지구 특례 적용"}
	settlementManaged = Limits{Coverage: 60, FAR: 100, Note: "취락지구 특례 적용"}
)

var buildingLimits = map[string]Limits{
	// 주거지역
	"제1종전용주거지역": {Coverage: 40, FAR: 80},
	"제2종전용주거지역": {Coverage: 40, FAR: 120},
	"제1종일반주거지역": {Coverage: 60, FAR: 200},
	"제2종일반주거지역": {Coverage: 60, FAR: 250},
	"제3종일반주거지역": {Coverage: 50, FAR: 300},
	"준주거지역":     {Coverage: 60, FAR: 500},

	// 상업지역
	"중심상업지역": {Coverage: 80, FAR: 1300},
	"일반상업지역": {Coverage: 80, FAR: 1000},
	"근린상업지역": {Coverage: 60, FAR: 700},

	// 공업지역
	"준공업지역": {Coverage: 60, FAR: 300},

	// 녹지/관리지역
	"자연녹지지역": {Coverage: 20, FAR: 80, HeightLimit: "4층 이하"},
	"계획관리지역": {Coverage: 40, FAR: 80, HeightLimit: "4층 이하"},
	"생산관리지역": {Coverage: 20, FAR: 60, HeightLimit: "3층 이하"},
	"보전관리지역": {Coverage: 20, FAR: 60, HeightLimit: "3층 이하"},
	"농림지역":   {Coverage: 20, FAR: 50, HeightLimit: "3층 이하"},
}

// Rules answers regulation questions for use zones. The zero value uses the
// built-in table.
type Rules struct {
	table map[string]Limits
}

// NewRules returns rules backed by the built-in table.
func NewRules() *Rules {
	return &Rules{table: buildingLimits}
}

// LimitsFor returns the coverage/FAR envelope for a use zone. A settlement
// district overrides the base zone entirely: the green variant applies when
// the zone name mentions 녹지, the managed variant otherwise. Unknown zones
// get the default {20, 80}.
func (r *Rules) LimitsFor(useZone string, isSettlement bool) Limits {
	if isSettlement {
		if strings.Contains(useZone, "녹지") {
			return settlementGreen
		}
		return settlementManaged
	}
	if l, ok := r.tableOrDefault()[useZone]; ok {
		return l
	}
	return defaultLimits
}

func (r *Rules) tableOrDefault() map[string]Limits {
	if r == nil || r.table == nil {
		return buildingLimits
	}
	return r.table
}

// NorthSetback returns the required daylight setback from the north boundary
// for a building of the given height. Non-residential zones have none;
// residential zones require 1.5 m up to 9 m of height (inclusive), then an
// extra 0.5 m per meter above 9.
func NorthSetback(height float64, useZone string) float64 {
	if !strings.Contains(useZone, "주거") {
		return 0
	}
	if height <= 9 {
		return 1.5
	}
	return 1.5 + (height-9)*0.5
}

// HeightFromSetback is the inverse relation: the height allowed by a given
// distance to the northern boundary. Non-residential zones are uncapped.
func HeightFromSetback(setbackDistance float64, useZone string) float64 {
	if !strings.Contains(useZone, "주거") {
		return math.Inf(1)
	}
	return setbackDistance*2 + 8
}

// FloorCap parses the leading digits of a floor-cap phrase like "4층 이하".
// Returns 0 when the phrase carries no cap.
func FloorCap(heightLimit string) int {
	n := 0
	seen := false
	for _, r := range heightLimit {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
			continue
		}
		break
	}
	if !seen {
		return 0
	}
	return n
}

// ParkingRequired computes the minimum parking-space count for a building
// type. Each rule floors to an integer and is bounded below by 1. Unknown
// types fall back to one space per 150 m².
func ParkingRequired(buildingType string, totalArea float64, unitCount int) int {
	var n int
	switch buildingType {
	case "단독주택", "근린생활시설":
		n = int(totalArea / 150)
	case "다세대주택", "다가구주택":
		n = int(float64(unitCount) * 0.7)
	case "아파트":
		n = unitCount
	case "업무시설":
		n = int(totalArea / 100)
	default:
		n = int(totalArea / 150)
	}
	if n < 1 {
		return 1
	}
	return n
}
