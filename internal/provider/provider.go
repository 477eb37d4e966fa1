// Package provider implements clients for the external geodata sources:
// the VWorld Lambda proxy, the VWorld data API, the public data portal
// (data.go.kr), and Kakao Local. Every call returns an explicit result or
// error; nothing panics across this boundary, and transport failures are
// classified transient so callers can retry.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/resilience"
)

// GeocodeResult is the output of forward geocoding an address.
type GeocodeResult struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Address     string  `json:"address"` // normalized
	Code10      string  `json:"code10"`  // region+sub-district legal code
	Region      string  `json:"region"`
	SubRegion   string  `json:"sub_region"`
	SubDistrict string  `json:"sub_district"`
	Jibun       string  `json:"jibun"`
}

// CadastralResult merges the proxy's cadastral and land-characteristics
// payloads for one parcel. Zero/empty fields mean the source had nothing.
type CadastralResult struct {
	Area             float64         `json:"area"`
	UseZone          string          `json:"use_zone"`
	LandCategory     string          `json:"land_category"`
	OfficialPrice    float64         `json:"official_price"`
	Ownership        string          `json:"ownership"`
	LandUseSituation string          `json:"land_use_situation"`
	TerrainHeight    string          `json:"terrain_height"`
	TerrainShape     string          `json:"terrain_shape"`
	RoadSide         string          `json:"road_side"`
	Address          string          `json:"address"`
	Jibun            string          `json:"jibun"`
	RawGeometry      json.RawMessage `json:"raw_geometry,omitempty"`
}

// LandUseResult lists the land-use plan designations for a parcel.
type LandUseResult struct {
	Zones       []model.ZoneDesignation `json:"zones"`
	PrimaryZone string                  `json:"primary_zone"`
}

// BuildingRegistryResult holds the building-register entries on a parcel.
type BuildingRegistryResult struct {
	Exists    bool             `json:"exists"`
	Buildings []model.Building `json:"buildings"`
}

// LandCharacteristicsResult is the supplementary attribute source.
type LandCharacteristicsResult struct {
	Area          float64 `json:"area"`
	UseZone       string  `json:"use_zone"`
	LandCategory  string  `json:"land_category"`
	OfficialPrice float64 `json:"official_price"`
	TerrainHeight string  `json:"terrain_height"`
	TerrainShape  string  `json:"terrain_shape"`
	RoadSide      string  `json:"road_side"`
	Address       string  `json:"address"`
}

// RoadResult is a road found near a parcel.
type RoadResult struct {
	Direction string  `json:"direction"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
}

// Geocoder resolves a free-text address to coordinates and parcel parts.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}

// CadastralSource fetches parcel attributes plus raw geometry.
type CadastralSource interface {
	Cadastral(ctx context.Context, pnu string) (*CadastralResult, error)
}

// LandUseSource fetches the land-use plan designations.
type LandUseSource interface {
	LandUse(ctx context.Context, pnu string) (*LandUseResult, error)
}

// BuildingRegistrySource fetches building-register entries.
type BuildingRegistrySource interface {
	BuildingRegistry(ctx context.Context, pnu string) (*BuildingRegistryResult, error)
}

// LandCharacteristicsSource fetches supplementary parcel attributes.
type LandCharacteristicsSource interface {
	LandCharacteristics(ctx context.Context, pnu string) (*LandCharacteristicsResult, error)
}

// RegulationSource fetches the behavioral land-use restrictions on a parcel.
type RegulationSource interface {
	LandUseRegulations(ctx context.Context, pnu string) ([]model.Regulation, error)
}

// RoadSource finds roads around a coordinate.
type RoadSource interface {
	RoadByCoord(ctx context.Context, lng, lat float64) (*RoadResult, error)
}

// httpClient is the shared transport used by all provider clients.
type httpClient struct {
	hc      *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func newHTTPClient(timeout time.Duration, rps float64) *httpClient {
	return &httpClient{
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// getJSON performs a rate-limited GET with retries and decodes the body.
func (c *httpClient) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, header, nil, out)
}

// postJSON performs a rate-limited POST with retries and decodes the body.
func (c *httpClient) postJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "provider: marshal request")
	}
	return c.doJSON(ctx, http.MethodPost, url, http.Header{"Content-Type": []string{"application/json"}}, payload, out)
}

func (c *httpClient) doJSON(ctx context.Context, method, url string, header http.Header, payload []byte, out any) error {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, eris.Wrap(err, "provider: build request")
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("provider: %s %s: status %d", method, url, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "provider: decode response")
	}
	return nil
}
