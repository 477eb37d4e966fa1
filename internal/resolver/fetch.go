package resolver

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/cache"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/provider"
)

// fetchCached runs fn behind the response cache. Cache errors are logged and
// treated as misses; a nil cache is a passthrough.
func fetchCached[T any](ctx context.Context, c cache.Cache, key string, ttl time.Duration, fn func(context.Context) (*T, error)) (*T, error) {
	if c != nil {
		data, ok, err := c.Get(ctx, key)
		if err != nil {
			zap.L().Warn("resolver: cache read", zap.String("key", key), zap.Error(err))
		} else if ok {
			var out T
			if err := json.Unmarshal(data, &out); err == nil {
				return &out, nil
			}
			zap.L().Warn("resolver: stale cache entry", zap.String("key", key))
		}
	}

	out, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	if c != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := c.Set(ctx, key, data, ttl); err != nil {
				zap.L().Warn("resolver: cache write", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return out, nil
}

func (r *Resolver) geocode(ctx context.Context, address string) (*provider.GeocodeResult, error) {
	return fetchCached(ctx, r.cache, cache.AddressKey("geocode", address), cache.TTLGeocode,
		func(ctx context.Context) (*provider.GeocodeResult, error) {
			return r.src.Geocoder.Geocode(ctx, address)
		})
}

func (r *Resolver) cadastral(ctx context.Context, parcelID string) (*provider.CadastralResult, error) {
	return fetchCached(ctx, r.cache, cache.PNUKey("cadastral", parcelID), cache.TTLParcel,
		func(ctx context.Context) (*provider.CadastralResult, error) {
			return r.src.Cadastral.Cadastral(ctx, parcelID)
		})
}

func (r *Resolver) landUse(ctx context.Context, parcelID string) (*provider.LandUseResult, error) {
	return fetchCached(ctx, r.cache, cache.PNUKey("landuse", parcelID), cache.TTLParcel,
		func(ctx context.Context) (*provider.LandUseResult, error) {
			return r.src.LandUse.LandUse(ctx, parcelID)
		})
}

func (r *Resolver) buildingRegistry(ctx context.Context, parcelID string) (*provider.BuildingRegistryResult, error) {
	return fetchCached(ctx, r.cache, cache.PNUKey("building", parcelID), cache.TTLBuilding,
		func(ctx context.Context) (*provider.BuildingRegistryResult, error) {
			return r.src.Buildings.BuildingRegistry(ctx, parcelID)
		})
}

func (r *Resolver) regulations(ctx context.Context, parcelID string) ([]model.Regulation, error) {
	out, err := fetchCached(ctx, r.cache, cache.PNUKey("regulation", parcelID), cache.TTLParcel,
		func(ctx context.Context) (*[]model.Regulation, error) {
			regs, err := r.src.Regulations.LandUseRegulations(ctx, parcelID)
			if err != nil {
				return nil, err
			}
			return &regs, nil
		})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// parcelGeometry caches the raw GeoJSON payload rather than the derived
// measures so a parser fix does not require invalidating entries.
func (r *Resolver) parcelGeometry(ctx context.Context, parcelID string) ([]byte, error) {
	type payload struct {
		Raw json.RawMessage `json:"raw"`
	}
	out, err := fetchCached(ctx, r.cache, cache.PNUKey("geometry", parcelID), cache.TTLParcel,
		func(ctx context.Context) (*payload, error) {
			raw, err := r.src.Geometry.ParcelGeometry(ctx, parcelID)
			if err != nil {
				return nil, err
			}
			return &payload{Raw: raw}, nil
		})
	if err != nil {
		return nil, err
	}
	return out.Raw, nil
}
