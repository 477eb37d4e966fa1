// Package resolver merges parcel attributes from the external geodata
// sources into a single LandAttributes record. Sources are unreliable and
// partially overlapping; each field is filled by the highest-priority source
// that produced it and never overwritten by a lower one.
package resolver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/cache"
	"github.com/jejulab/landmass/internal/geometry"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/pnu"
	"github.com/jejulab/landmass/internal/provider"
	"github.com/jejulab/landmass/internal/store"
	"github.com/jejulab/landmass/internal/zoning"
)

// regionPrefix is prepended to queries that do not already name the region.
const regionPrefix = "제주특별자치도"

// PointResolver reverse-geocodes coordinates into parcel identifiers. The
// geocoder is consulted through it when the forward result lacks a usable
// region code or jibun.
type PointResolver interface {
	ParcelByPoint(ctx context.Context, x, y float64) (*provider.GeocodeResult, error)
}

// GeometrySource fetches a parcel polygon when the primary cadastral
// payload carried none.
type GeometrySource interface {
	ParcelGeometry(ctx context.Context, pnu string) ([]byte, error)
}

// AdjacencySource lists cadastre parcels around a bounding box.
type AdjacencySource interface {
	AdjacentParcels(ctx context.Context, box model.BBox) ([]provider.AdjacentParcel, error)
}

// RoadFinder looks up road names around coordinates.
type RoadFinder interface {
	RoadByCoord(ctx context.Context, lng, lat float64) (*provider.RoadResult, error)
	NearestRoads(ctx context.Context, center model.Coordinate, bbox *model.BBox, directions []string) []model.RoadInfo
}

// Sources bundles the provider clients the resolver draws from. Geocoder,
// Cadastral and LandUse are required; the rest degrade gracefully when nil.
type Sources struct {
	Geocoder    provider.Geocoder
	Cadastral   provider.CadastralSource
	LandUse     provider.LandUseSource
	Buildings   provider.BuildingRegistrySource
	Regulations provider.RegulationSource

	// Fallbacks are tried in order when the primary sources produced no
	// usable area.
	Fallbacks []provider.LandCharacteristicsSource

	Geometry  GeometrySource
	Adjacency AdjacencySource
	Roads     RoadFinder
}

// Resolver resolves addresses and parcel identifiers to merged records.
type Resolver struct {
	src   Sources
	cache cache.Cache
	store store.Store
	rules *zoning.Rules
	now   func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache sets the response cache for provider calls.
func WithCache(c cache.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithStore sets the parcel store used by ResolveByPNU and Regulation.
func WithStore(s store.Store) Option {
	return func(r *Resolver) { r.store = s }
}

// WithRules replaces the built-in zoning table.
func WithRules(rules *zoning.Rules) Option {
	return func(r *Resolver) { r.rules = rules }
}

// New creates a Resolver over the given sources.
func New(src Sources, opts ...Option) *Resolver {
	r := &Resolver{
		src:   src,
		rules: zoning.NewRules(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeAddress prepends the region name when the query omits it. Users
// habitually type city-level addresses.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" || strings.Contains(address, "제주") {
		return address
	}
	return regionPrefix + " " + address
}

// Resolve geocodes an address and merges every available source into one
// record. Individual source failures degrade to missing fields; only a
// failed geocode or an unusable parcel identifier is an error.
func (r *Resolver) Resolve(ctx context.Context, address string) (*model.LandAttributes, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return nil, apperr.New(apperr.KindNotFound, "resolver: empty address")
	}
	if r.src.Geocoder == nil {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "resolver: no geocoder configured")
	}

	geo, err := r.geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if geo.X == 0 || geo.Y == 0 {
		return nil, apperr.New(apperr.KindNotFound, "resolver: geocoder returned no coordinates")
	}
	if geo.Code10 == "" || geo.Jibun == "" {
		if pr, ok := r.src.Geocoder.(PointResolver); ok {
			if rev, err := pr.ParcelByPoint(ctx, geo.X, geo.Y); err == nil {
				if geo.Code10 == "" {
					geo.Code10 = rev.Code10
				}
				if geo.Jibun == "" {
					geo.Jibun = rev.Jibun
				}
			}
		}
	}
	parcelID, err := pnu.Encode(geo.Code10, geo.Jibun)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, "resolver: no parcel identifier for address", err)
	}

	cad, landUse, buildings, regs := r.fanOut(ctx, parcelID)

	land := merge(geo, parcelID, cad, landUse, buildings, regs)
	r.attachGeometry(ctx, land, cad)
	r.fillFromFallbacks(ctx, land)
	finalizeZone(land)
	land.ResolvedAt = r.now()

	if r.store != nil && land.Area > 0 {
		if err := r.store.SaveParcel(ctx, land); err != nil {
			zap.L().Warn("resolver: persist parcel", zap.String("pnu", parcelID), zap.Error(err))
		}
	}
	return land, nil
}

// ResolveByPNU resolves a known parcel identifier. A stored record with a
// valid area short-circuits the provider cascade; building-registry entries
// and land-use zones are always refreshed live.
func (r *Resolver) ResolveByPNU(ctx context.Context, parcelID string) (*model.LandAttributes, error) {
	if r.store != nil {
		stored, err := r.store.GetParcel(ctx, parcelID)
		if err != nil {
			zap.L().Warn("resolver: read parcel store", zap.String("pnu", parcelID), zap.Error(err))
		}
		if stored != nil && stored.Area > 0 {
			r.refreshLive(ctx, stored)
			return stored, nil
		}
	}

	cad, landUse, buildings, regs := r.fanOut(ctx, parcelID)
	if cad == nil && landUse == nil {
		return nil, apperr.New(apperr.KindParcelNotFound, "resolver: parcel not found")
	}

	parts := pnu.Decode(parcelID)
	land := merge(&provider.GeocodeResult{Jibun: parts.JibunString()}, parcelID, cad, landUse, buildings, regs)
	r.attachGeometry(ctx, land, cad)
	r.fillFromFallbacks(ctx, land)
	finalizeZone(land)
	land.ResolvedAt = r.now()

	if land.Geometry != nil && land.Longitude == 0 {
		land.Longitude = land.Geometry.Center.Lng
		land.Latitude = land.Geometry.Center.Lat
	}

	if r.store != nil && land.Area > 0 && land.Longitude != 0 {
		if err := r.store.SaveParcel(ctx, land); err != nil {
			zap.L().Warn("resolver: persist parcel", zap.String("pnu", parcelID), zap.Error(err))
		}
	}
	return land, nil
}

// Regulation computes the legal envelope for a previously resolved parcel.
func (r *Resolver) Regulation(ctx context.Context, parcelID string) (*model.RegulationSummary, error) {
	land, err := r.ResolveByPNU(ctx, parcelID)
	if err != nil {
		return nil, err
	}

	limits := r.rules.LimitsFor(land.UseZone, land.IsSettlement)
	return &model.RegulationSummary{
		PNU:        land.PNU,
		Address:    land.AddressJibun,
		ParcelArea: land.Area,
		UseZone:    land.UseZone,
		Limits: model.RegulationLimits{
			Coverage:    limits.Coverage,
			FAR:         limits.FAR,
			HeightLimit: limits.HeightLimit,
			Note:        limits.Note,
		},
		NorthSetback:    1.5,
		MaxBuildingArea: round2(land.Area * limits.Coverage / 100),
		MaxFloorArea:    round2(land.Area * limits.FAR / 100),
	}, nil
}

// fanOut queries the independent primary sources concurrently. Failures are
// logged and surface as nil contributions.
func (r *Resolver) fanOut(ctx context.Context, parcelID string) (*provider.CadastralResult, *provider.LandUseResult, *provider.BuildingRegistryResult, []model.Regulation) {
	var (
		cad       *provider.CadastralResult
		landUse   *provider.LandUseResult
		buildings *provider.BuildingRegistryResult
		regs      []model.Regulation
	)

	g, gctx := errgroup.WithContext(ctx)
	if r.src.Cadastral != nil {
		g.Go(func() error {
			res, err := r.cadastral(gctx, parcelID)
			if err != nil {
				zap.L().Warn("resolver: cadastral source", zap.String("pnu", parcelID), zap.Error(err))
				return nil
			}
			cad = res
			return nil
		})
	}
	if r.src.LandUse != nil {
		g.Go(func() error {
			res, err := r.landUse(gctx, parcelID)
			if err != nil {
				zap.L().Warn("resolver: land use source", zap.String("pnu", parcelID), zap.Error(err))
				return nil
			}
			landUse = res
			return nil
		})
	}
	if r.src.Buildings != nil {
		g.Go(func() error {
			res, err := r.buildingRegistry(gctx, parcelID)
			if err != nil {
				zap.L().Warn("resolver: building registry", zap.String("pnu", parcelID), zap.Error(err))
				return nil
			}
			buildings = res
			return nil
		})
	}
	if r.src.Regulations != nil {
		g.Go(func() error {
			res, err := r.regulations(gctx, parcelID)
			if err != nil {
				zap.L().Warn("resolver: regulation source", zap.String("pnu", parcelID), zap.Error(err))
				return nil
			}
			regs = res
			return nil
		})
	}
	_ = g.Wait()

	return cad, landUse, buildings, regs
}

// attachGeometry derives the parcel outline from the cadastral payload,
// falling back to the direct geometry source.
func (r *Resolver) attachGeometry(ctx context.Context, land *model.LandAttributes, cad *provider.CadastralResult) {
	var raw []byte
	if cad != nil && len(cad.RawGeometry) > 0 {
		raw = cad.RawGeometry
	} else if r.src.Geometry != nil {
		fetched, err := r.parcelGeometry(ctx, land.PNU)
		if err != nil {
			zap.L().Debug("resolver: geometry source", zap.String("pnu", land.PNU), zap.Error(err))
			return
		}
		raw = fetched
	}
	if len(raw) == 0 {
		return
	}

	ring, err := geometry.RingFromGeoJSON(raw)
	if err != nil {
		zap.L().Warn("resolver: parse parcel geometry", zap.String("pnu", land.PNU), zap.Error(err))
		return
	}
	land.Geometry = geometry.DeriveGeometry(ring)
	if land.Area == 0 && land.Geometry != nil {
		land.Area = round2(geometry.AreaM2(ring))
	}
}

// fillFromFallbacks consults the supplementary characteristics sources while
// the record still lacks an area.
func (r *Resolver) fillFromFallbacks(ctx context.Context, land *model.LandAttributes) {
	for _, fb := range r.src.Fallbacks {
		if land.Area > 0 {
			return
		}
		res, err := fb.LandCharacteristics(ctx, land.PNU)
		if err != nil {
			continue
		}
		if res.Area > 0 {
			land.Area = res.Area
		}
		if land.OfficialLandPrice == 0 {
			land.OfficialLandPrice = res.OfficialPrice
		}
		if land.UseZone == "" {
			land.UseZone = res.UseZone
		}
		if land.AddressJibun == "" {
			land.AddressJibun = res.Address
		}
		if land.LandCategory == "" && res.LandCategory != "" {
			land.LandCategory = res.LandCategory
		}
	}
}

// refreshLive overlays the volatile fields on a stored record. The building
// register and the land-use designations and restrictions change underneath
// us; everything else keeps its stored value.
func (r *Resolver) refreshLive(ctx context.Context, land *model.LandAttributes) {
	if r.src.Buildings != nil {
		if br, err := r.buildingRegistry(ctx, land.PNU); err == nil {
			land.BuildingExists = br.Exists
			land.Buildings = br.Buildings
		}
	}
	if r.src.Regulations != nil {
		if regs, err := r.regulations(ctx, land.PNU); err == nil && len(regs) > 0 {
			land.Regulations = regs
		}
	}
	if r.src.LandUse == nil {
		return
	}
	if lu, err := r.landUse(ctx, land.PNU); err == nil && len(lu.Zones) > 0 {
		land.UseZones = lu.Zones
		land.IsSettlement = settlementIn(lu.Zones)
	}
}
