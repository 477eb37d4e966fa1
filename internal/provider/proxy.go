package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/pnu"
)

// ProxyClient calls the Lambda proxy that fronts the VWorld APIs. The proxy
// multiplexes several lookups over one endpoint:
//
//	geocode:  POST {"type":"geocode","address":...}
//	reverse:  POST {"type":"reverse","x":...,"y":...}
//	cadastral: GET ?pnu=...
//	land use:  GET ?type=landuse&pnu=...
//	nearby:    GET ?type=nearby&pnu=...&x=...&y=...&radius=...
type ProxyClient struct {
	baseURL string
	http    *httpClient
}

// ProxyOption configures a ProxyClient.
type ProxyOption func(*ProxyClient)

// WithProxyHTTPClient replaces the underlying transport, mainly for tests.
func WithProxyHTTPClient(c *httpClient) ProxyOption {
	return func(p *ProxyClient) { p.http = c }
}

// WithProxyTimeout sets the per-request timeout.
func WithProxyTimeout(d time.Duration) ProxyOption {
	return func(p *ProxyClient) { p.http.hc.Timeout = d }
}

// WithProxyTransport tunes the request timeout and rate limit.
func WithProxyTransport(timeout time.Duration, rps float64) ProxyOption {
	return func(p *ProxyClient) { p.http = newHTTPClient(timeout, rps) }
}

// NewProxy creates a client for the Lambda proxy at baseURL.
func NewProxy(baseURL string, opts ...ProxyOption) *ProxyClient {
	p := &ProxyClient{
		baseURL: baseURL,
		http:    newHTTPClient(15*time.Second, 10),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type proxyStructure struct {
	Level1   string `json:"level1"`
	Level2   string `json:"level2"`
	Level4L  string `json:"level4L"`
	Level4LC string `json:"level4LC"`
	Level5   string `json:"level5"`
}

type proxyGeocodeResponse struct {
	Response struct {
		Status  string `json:"status"`
		Refined struct {
			Text      string         `json:"text"`
			Structure proxyStructure `json:"structure"`
		} `json:"refined"`
		Result struct {
			Point struct {
				X string `json:"x"`
				Y string `json:"y"`
			} `json:"point"`
		} `json:"result"`
	} `json:"response"`
}

// Geocode resolves a jibun address to coordinates and legal-code parts.
// An address the upstream cannot place returns a NOT_FOUND error.
func (p *ProxyClient) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	var resp proxyGeocodeResponse
	err := p.http.postJSON(ctx, p.baseURL, map[string]any{
		"type":    "geocode",
		"address": address,
	}, &resp)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "proxy: geocode", err)
	}
	if resp.Response.Status != "OK" {
		return nil, apperr.New(apperr.KindNotFound, "proxy: address not found")
	}

	x, _ := strconv.ParseFloat(resp.Response.Result.Point.X, 64)
	y, _ := strconv.ParseFloat(resp.Response.Result.Point.Y, 64)
	st := resp.Response.Refined.Structure

	out := &GeocodeResult{
		X:           x,
		Y:           y,
		Address:     resp.Response.Refined.Text,
		Code10:      st.Level4LC,
		Region:      st.Level1,
		SubRegion:   st.Level2,
		SubDistrict: st.Level4L,
		Jibun:       st.Level5,
	}
	if out.Address == "" {
		out.Address = address
	}
	return out, nil
}

type proxyReverseResponse struct {
	Response struct {
		Status string `json:"status"`
		Result []struct {
			Text      string         `json:"text"`
			Structure proxyStructure `json:"structure"`
		} `json:"result"`
	} `json:"response"`
}

// ParcelByPoint reverse-geocodes a coordinate into the parcel identifier
// covering it.
func (p *ProxyClient) ParcelByPoint(ctx context.Context, x, y float64) (*GeocodeResult, error) {
	var resp proxyReverseResponse
	err := p.http.postJSON(ctx, p.baseURL, map[string]any{
		"type": "reverse",
		"x":    x,
		"y":    y,
	}, &resp)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "proxy: reverse geocode", err)
	}
	if resp.Response.Status != "OK" || len(resp.Response.Result) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "proxy: no parcel at coordinate")
	}

	item := resp.Response.Result[0]
	st := item.Structure
	return &GeocodeResult{
		X:           x,
		Y:           y,
		Address:     item.Text,
		Code10:      st.Level4LC,
		Region:      st.Level1,
		SubRegion:   st.Level2,
		SubDistrict: st.Level4L,
		Jibun:       st.Level5,
	}, nil
}

type proxyCadastralResponse struct {
	Cadastral *struct {
		Addr     string          `json:"addr"`
		Jibun    string          `json:"jibun"`
		Jiga     string          `json:"jiga"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"cadastral"`
	LandChar *struct {
		LndpclAr        float64 `json:"lndpclAr"`
		PblntfPclnd     float64 `json:"pblntfPclnd"`
		LndcgrCodeNm    string  `json:"lndcgrCodeNm"`
		OwnshipDivNm    string  `json:"ownshipDivNm"`
		LadUseSittnNm   string  `json:"ladUseSittnNm"`
		TpgrphHgCodeNm  string  `json:"tpgrphHgCodeNm"`
		TpgrphFrmCodeNm string  `json:"tpgrphFrmCodeNm"`
		RoadSideCodeNm  string  `json:"roadSideCodeNm"`
		PrposArea1Nm    string  `json:"prposArea1Nm"`
	} `json:"landChar"`
}

// Cadastral fetches parcel attributes and raw polygon geometry. Either the
// cadastre record or the land-characteristics record may be absent; a parcel
// missing from both yields NOT_FOUND.
func (p *ProxyClient) Cadastral(ctx context.Context, parcelID string) (*CadastralResult, error) {
	var resp proxyCadastralResponse
	url := fmt.Sprintf("%s?pnu=%s", p.baseURL, parcelID)
	if err := p.http.getJSON(ctx, url, nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "proxy: cadastral", err)
	}
	if resp.Cadastral == nil && resp.LandChar == nil {
		return nil, apperr.New(apperr.KindNotFound, "proxy: no cadastral record")
	}

	out := &CadastralResult{}
	if c := resp.Cadastral; c != nil {
		out.Address = c.Addr
		out.Jibun = c.Jibun
		out.RawGeometry = c.Geometry
		if c.Jiga != "" {
			if v, err := strconv.ParseFloat(c.Jiga, 64); err == nil {
				out.OfficialPrice = v
			}
		}
	}
	if lc := resp.LandChar; lc != nil {
		out.Area = lc.LndpclAr
		out.UseZone = lc.PrposArea1Nm
		out.LandCategory = lc.LndcgrCodeNm
		out.Ownership = lc.OwnshipDivNm
		out.LandUseSituation = lc.LadUseSittnNm
		out.TerrainHeight = lc.TpgrphHgCodeNm
		out.TerrainShape = lc.TpgrphFrmCodeNm
		out.RoadSide = lc.RoadSideCodeNm
		if out.OfficialPrice == 0 {
			out.OfficialPrice = lc.PblntfPclnd
		}
	}
	if out.LandCategory == "" {
		out.LandCategory = pnu.CategoryFromJibun(out.Jibun)
	}
	return out, nil
}

type proxyLandUseResponse struct {
	LandUses struct {
		Field []struct {
			PrposAreaDstrcCodeNm string `json:"prposAreaDstrcCodeNm"`
		} `json:"field"`
	} `json:"landUses"`
}

// LandUse fetches the land-use plan designations for a parcel. An empty
// designation list is a valid result, not an error.
func (p *ProxyClient) LandUse(ctx context.Context, parcelID string) (*LandUseResult, error) {
	var resp proxyLandUseResponse
	url := fmt.Sprintf("%s?type=landuse&pnu=%s", p.baseURL, parcelID)
	if err := p.http.getJSON(ctx, url, nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "proxy: land use", err)
	}

	out := &LandUseResult{}
	for _, item := range resp.LandUses.Field {
		if item.PrposAreaDstrcCodeNm == "" {
			continue
		}
		out.Zones = append(out.Zones, model.ZoneDesignation{
			Name: item.PrposAreaDstrcCodeNm,
			Law:  "국토의 계획 및 이용에 관한 법률",
		})
	}
	if len(out.Zones) > 0 {
		out.PrimaryZone = out.Zones[0].Name
	}
	return out, nil
}

// NearbyResult holds raw nearby-feature payloads from the proxy.
type NearbyResult struct {
	Buildings []json.RawMessage `json:"buildings"`
	Roads     []json.RawMessage `json:"roads"`
}

// Nearby fetches buildings and roads within radius meters of a coordinate.
// The upstream endpoint is best-effort; failures yield an empty result.
func (p *ProxyClient) Nearby(ctx context.Context, parcelID string, x, y float64, radius int) (*NearbyResult, error) {
	var resp NearbyResult
	url := fmt.Sprintf("%s?type=nearby&pnu=%s&x=%g&y=%g&radius=%d", p.baseURL, parcelID, x, y, radius)
	if err := p.http.getJSON(ctx, url, nil, &resp); err != nil {
		return &NearbyResult{}, nil
	}
	return &resp, nil
}
