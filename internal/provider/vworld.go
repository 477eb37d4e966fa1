package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/geometry"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/pnu"
)

const vworldDataURL = "https://api.vworld.kr/req/data"

// cadastreLayer is the continuous cadastre layer carrying parcel polygons,
// official prices and jibun strings.
const cadastreLayer = "LP_PA_CBND_BUBUN"

// VWorldClient calls the VWorld data API directly. It backs up the Lambda
// proxy when the proxy is down or returns no geometry.
type VWorldClient struct {
	apiKey  string
	domain  string
	baseURL string
	http    *httpClient
}

// VWorldOption configures a VWorldClient.
type VWorldOption func(*VWorldClient)

// WithVWorldHTTPClient replaces the underlying transport, mainly for tests.
func WithVWorldHTTPClient(c *httpClient) VWorldOption {
	return func(v *VWorldClient) { v.http = c }
}

// WithVWorldTransport tunes the request timeout and rate limit.
func WithVWorldTransport(timeout time.Duration, rps float64) VWorldOption {
	return func(v *VWorldClient) { v.http = newHTTPClient(timeout, rps) }
}

// WithVWorldBaseURL overrides the API endpoint, mainly for tests.
func WithVWorldBaseURL(u string) VWorldOption {
	return func(v *VWorldClient) { v.baseURL = u }
}

// NewVWorld creates a direct VWorld client. domain must match the key's
// registered domain or the API rejects the request.
func NewVWorld(apiKey, domain string, opts ...VWorldOption) *VWorldClient {
	v := &VWorldClient{
		apiKey:  apiKey,
		domain:  domain,
		baseURL: vworldDataURL,
		http:    newHTTPClient(15*time.Second, 5),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type vworldFeatureResponse struct {
	Response struct {
		Status string `json:"status"`
		Result struct {
			FeatureCollection struct {
				Features []struct {
					Properties struct {
						Pnu   string `json:"pnu"`
						Addr  string `json:"addr"`
						Jibun string `json:"jibun"`
						Jiga  string `json:"jiga"`
					} `json:"properties"`
					Geometry json.RawMessage `json:"geometry"`
				} `json:"features"`
			} `json:"featureCollection"`
		} `json:"result"`
	} `json:"response"`
}

func (v *VWorldClient) getFeature(ctx context.Context, filter url.Values) (*vworldFeatureResponse, error) {
	q := url.Values{
		"service":     {"data"},
		"request":     {"GetFeature"},
		"data":        {cadastreLayer},
		"key":         {v.apiKey},
		"domain":      {v.domain},
		"format":      {"json"},
		"errorformat": {"json"},
		"crs":         {"EPSG:4326"},
		"geometry":    {"true"},
		"attribute":   {"true"},
	}
	for k, vals := range filter {
		q[k] = vals
	}
	var resp vworldFeatureResponse
	if err := v.http.getJSON(ctx, v.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "vworld: get feature", err)
	}
	return &resp, nil
}

// LandCharacteristics derives parcel attributes from the continuous
// cadastre: area computed from the polygon, official price, and the land
// category parsed off the jibun suffix.
func (v *VWorldClient) LandCharacteristics(ctx context.Context, parcelID string) (*LandCharacteristicsResult, error) {
	resp, err := v.getFeature(ctx, url.Values{"attrFilter": {"pnu:=:" + parcelID}})
	if err != nil {
		return nil, err
	}
	features := resp.Response.Result.FeatureCollection.Features
	if resp.Response.Status != "OK" || len(features) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "vworld: parcel not found")
	}

	f := features[0]
	out := &LandCharacteristicsResult{
		LandCategory: pnu.CategoryFromJibun(f.Properties.Jibun),
		Address:      f.Properties.Addr,
	}
	if f.Properties.Jiga != "" {
		if price, err := strconv.ParseFloat(f.Properties.Jiga, 64); err == nil {
			out.OfficialPrice = price
		}
	}
	if ring, err := geometry.RingFromGeoJSON(f.Geometry); err == nil {
		out.Area = round2(geometry.AreaM2(ring))
	}
	return out, nil
}

// ParcelGeometry fetches the raw GeoJSON geometry of a parcel.
func (v *VWorldClient) ParcelGeometry(ctx context.Context, parcelID string) ([]byte, error) {
	resp, err := v.getFeature(ctx, url.Values{"attrFilter": {"pnu:=:" + parcelID}})
	if err != nil {
		return nil, err
	}
	features := resp.Response.Result.FeatureCollection.Features
	if resp.Response.Status != "OK" || len(features) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "vworld: parcel geometry not found")
	}
	return features[0].Geometry, nil
}

// AdjacentParcel is a cadastre parcel found around a bounding box.
type AdjacentParcel struct {
	PNU      string             `json:"pnu"`
	Jibun    string             `json:"jibun"`
	Category string             `json:"category"`
	Ring     []model.Coordinate `json:"ring"`
}

// AdjacentParcels queries the continuous cadastre for every parcel
// intersecting the box, capped at 100 features.
func (v *VWorldClient) AdjacentParcels(ctx context.Context, box model.BBox) ([]AdjacentParcel, error) {
	boxStr := fmt.Sprintf("BOX(%g,%g,%g,%g)", box.MinX, box.MinY, box.MaxX, box.MaxY)
	resp, err := v.getFeature(ctx, url.Values{
		"geomFilter": {boxStr},
		"size":       {"100"},
	})
	if err != nil {
		return nil, err
	}
	if resp.Response.Status != "OK" {
		return nil, apperr.New(apperr.KindNotFound, "vworld: no parcels in box")
	}

	var parcels []AdjacentParcel
	for _, f := range resp.Response.Result.FeatureCollection.Features {
		ring, err := geometry.RingFromGeoJSON(f.Geometry)
		if err != nil || len(ring) == 0 {
			continue
		}
		parcels = append(parcels, AdjacentParcel{
			PNU:      f.Properties.Pnu,
			Jibun:    f.Properties.Jibun,
			Category: pnu.CategoryFromJibun(f.Properties.Jibun),
			Ring:     ring,
		})
	}
	return parcels, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
