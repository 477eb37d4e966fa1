package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/geometry"
	"github.com/jejulab/landmass/internal/model"
)

const kakaoBaseURL = "https://dapi.kakao.com/v2/local"

// roadSearchOffsetMeters is how far outside the parcel boundary the nearest
// road lookup probes in each direction. Thirty meters clears a typical lot
// edge onto the adjacent road.
const roadSearchOffsetMeters = 30.0

// KakaoClient looks up road names around parcels through the Kakao Local
// API.
type KakaoClient struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

// KakaoOption configures a KakaoClient.
type KakaoOption func(*KakaoClient)

// WithKakaoHTTPClient replaces the underlying transport, mainly for tests.
func WithKakaoHTTPClient(c *httpClient) KakaoOption {
	return func(k *KakaoClient) { k.http = c }
}

// WithKakaoTransport tunes the request timeout and rate limit.
func WithKakaoTransport(timeout time.Duration, rps float64) KakaoOption {
	return func(k *KakaoClient) { k.http = newHTTPClient(timeout, rps) }
}

// WithKakaoBaseURL overrides the API endpoint, mainly for tests.
func WithKakaoBaseURL(u string) KakaoOption {
	return func(k *KakaoClient) { k.baseURL = u }
}

// NewKakao creates a Kakao Local client.
func NewKakao(apiKey string, opts ...KakaoOption) *KakaoClient {
	k := &KakaoClient{
		apiKey:  apiKey,
		baseURL: kakaoBaseURL,
		http:    newHTTPClient(10*time.Second, 10),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *KakaoClient) authHeader() http.Header {
	return http.Header{"Authorization": []string{"KakaoAK " + k.apiKey}}
}

type kakaoRoadAddress struct {
	AddressName      string `json:"address_name"`
	RoadName         string `json:"road_name"`
	BuildingName     string `json:"building_name"`
	Region3DepthName string `json:"region_3depth_name"`
}

type kakaoCoordResponse struct {
	Documents []struct {
		RoadAddress *kakaoRoadAddress `json:"road_address"`
	} `json:"documents"`
}

// RoadByCoord reverse-geocodes a coordinate to the road serving it.
func (k *KakaoClient) RoadByCoord(ctx context.Context, lng, lat float64) (*RoadResult, error) {
	q := url.Values{
		"x": {fmt.Sprintf("%g", lng)},
		"y": {fmt.Sprintf("%g", lat)},
	}
	var resp kakaoCoordResponse
	u := k.baseURL + "/geo/coord2address.json?" + q.Encode()
	if err := k.http.getJSON(ctx, u, k.authHeader(), &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "kakao: coord to address", err)
	}
	if len(resp.Documents) == 0 || resp.Documents[0].RoadAddress == nil {
		return nil, apperr.New(apperr.KindNotFound, "kakao: no road at coordinate")
	}

	ra := resp.Documents[0].RoadAddress
	return &RoadResult{
		Name:    ra.RoadName,
		Address: ra.AddressName,
		Lng:     lng,
		Lat:     lat,
	}, nil
}

type kakaoAddressResponse struct {
	Documents []struct {
		RoadAddress *kakaoRoadAddress `json:"road_address"`
	} `json:"documents"`
}

// AddressRoad finds the road-name address registered for a jibun address.
// The registered road is usually the parcel's front road.
func (k *KakaoClient) AddressRoad(ctx context.Context, address string) (*RoadResult, error) {
	q := url.Values{"query": {address}}
	var resp kakaoAddressResponse
	u := k.baseURL + "/search/address.json?" + q.Encode()
	if err := k.http.getJSON(ctx, u, k.authHeader(), &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "kakao: address search", err)
	}
	if len(resp.Documents) == 0 || resp.Documents[0].RoadAddress == nil || resp.Documents[0].RoadAddress.RoadName == "" {
		return nil, apperr.New(apperr.KindNotFound, "kakao: no road address for parcel")
	}

	ra := resp.Documents[0].RoadAddress
	return &RoadResult{
		Direction: "north", // refined later from parcel shape
		Name:      ra.RoadName,
		Address:   ra.AddressName,
	}, nil
}

// NearestRoads probes just outside the parcel boundary in each requested
// direction and reports every road found. Directions default to all four.
func (k *KakaoClient) NearestRoads(ctx context.Context, center model.Coordinate, bbox *model.BBox, directions []string) []model.RoadInfo {
	if len(directions) == 0 {
		directions = []string{"south", "north", "east", "west"}
	}

	latOff := roadSearchOffsetMeters / geometry.MetersPerDegLat()
	lngOff := roadSearchOffsetMeters / geometry.MetersPerDegLng(center.Lat)

	points := map[string]model.Coordinate{}
	if bbox != nil {
		points["south"] = model.Coordinate{Lng: center.Lng, Lat: bbox.MinY - latOff}
		points["north"] = model.Coordinate{Lng: center.Lng, Lat: bbox.MaxY + latOff}
		points["east"] = model.Coordinate{Lng: bbox.MaxX + lngOff, Lat: center.Lat}
		points["west"] = model.Coordinate{Lng: bbox.MinX - lngOff, Lat: center.Lat}
	} else {
		points["south"] = model.Coordinate{Lng: center.Lng, Lat: center.Lat - latOff*2}
		points["north"] = model.Coordinate{Lng: center.Lng, Lat: center.Lat + latOff*2}
		points["east"] = model.Coordinate{Lng: center.Lng + lngOff*2, Lat: center.Lat}
		points["west"] = model.Coordinate{Lng: center.Lng - lngOff*2, Lat: center.Lat}
	}

	var roads []model.RoadInfo
	for _, dir := range directions {
		pt, ok := points[dir]
		if !ok {
			continue
		}
		res, err := k.RoadByCoord(ctx, pt.Lng, pt.Lat)
		if err != nil || res.Name == "" {
			continue
		}
		roads = append(roads, model.RoadInfo{
			Direction: dir,
			Name:      res.Name,
			Address:   res.Address,
		})
	}
	return roads
}
