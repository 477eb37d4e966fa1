package resolver

import (
	"math"
	"strings"

	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/pnu"
	"github.com/jejulab/landmass/internal/provider"
)

const settlementDistrict = "취락지구"

// merge folds the source payloads into one record in fixed priority order.
// The order is deterministic regardless of which source answered first.
func merge(geo *provider.GeocodeResult, parcelID string, cad *provider.CadastralResult, landUse *provider.LandUseResult, buildings *provider.BuildingRegistryResult, regs []model.Regulation) *model.LandAttributes {
	land := &model.LandAttributes{
		PNU:          parcelID,
		AddressJibun: geo.Address,
		Region:       geo.Region,
		SubRegion:    geo.SubRegion,
		SubDistrict:  geo.SubDistrict,
		Jibun:        geo.Jibun,
		Longitude:    geo.X,
		Latitude:     geo.Y,
	}

	if cad != nil {
		land.Area = cad.Area
		land.UseZone = cad.UseZone
		land.LandCategory = cad.LandCategory
		land.OfficialLandPrice = cad.OfficialPrice
		land.Ownership = cad.Ownership
		land.LandUseSituation = cad.LandUseSituation
		land.TerrainHeight = cad.TerrainHeight
		land.TerrainShape = cad.TerrainShape
		land.RoadSide = cad.RoadSide
		if land.AddressJibun == "" {
			land.AddressJibun = cad.Address
		}
		if land.Jibun == "" {
			land.Jibun = cad.Jibun
		}
	}

	if landUse != nil {
		land.UseZones = landUse.Zones
		land.IsSettlement = settlementIn(landUse.Zones)
		if land.UseZone == "" {
			land.UseZone = landUse.PrimaryZone
		}
	}

	if buildings != nil {
		land.BuildingExists = buildings.Exists
		land.Buildings = buildings.Buildings
	}
	land.Regulations = regs

	if land.LandCategory == "" && land.Jibun != "" {
		land.LandCategory = pnu.CategoryFromJibun(land.Jibun)
	}
	return land
}

// finalizeZone fills the remaining holes no source answered: the use zone is
// estimated from the sub-district suffix (동 means urban), and the category
// defaults to building land.
func finalizeZone(land *model.LandAttributes) {
	if land.UseZone == "" {
		if strings.HasSuffix(land.SubDistrict, "동") {
			land.UseZone = "제2종일반주거지역"
		} else {
			land.UseZone = "계획관리지역"
		}
	}
	if land.LandCategory == "" {
		land.LandCategory = "대"
	}
}

func settlementIn(zones []model.ZoneDesignation) bool {
	for _, z := range zones {
		if strings.Contains(z.Name, settlementDistrict) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
