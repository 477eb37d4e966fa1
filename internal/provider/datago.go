package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/pnu"
)

const (
	dataGoBaseURL  = "https://apis.data.go.kr/1613000"
	landCharURL    = "https://apis.data.go.kr/1611000/nsdi/LandCharacteristicsService/wfs/getLandCharacteristics"
	buildingPath   = "/BldRgstHubService/getBrTitleInfo"
	regulationPath = "/arLandUseInfoService/getAcrgRegInfoWMS"
	actionsPath    = "/arLandUseInfoService/getActListWMS"
)

// DataGoClient calls the public data portal (data.go.kr): the building
// register, land-use regulation listings, and the national land
// characteristics service.
type DataGoClient struct {
	apiKey       string
	baseURL      string
	landCharBase string
	http         *httpClient
}

// DataGoOption configures a DataGoClient.
type DataGoOption func(*DataGoClient)

// WithDataGoHTTPClient replaces the underlying transport, mainly for tests.
func WithDataGoHTTPClient(c *httpClient) DataGoOption {
	return func(d *DataGoClient) { d.http = c }
}

// WithDataGoTransport tunes the request timeout and rate limit.
func WithDataGoTransport(timeout time.Duration, rps float64) DataGoOption {
	return func(d *DataGoClient) { d.http = newHTTPClient(timeout, rps) }
}

// WithDataGoBaseURL overrides both portal endpoints, mainly for tests.
func WithDataGoBaseURL(u string) DataGoOption {
	return func(d *DataGoClient) {
		d.baseURL = u
		d.landCharBase = u + "/landchar"
	}
}

// NewDataGo creates a public-data-portal client.
func NewDataGo(apiKey string, opts ...DataGoOption) *DataGoClient {
	d := &DataGoClient{
		apiKey:       apiKey,
		baseURL:      dataGoBaseURL,
		landCharBase: landCharURL,
		http:         newHTTPClient(15*time.Second, 5),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// portalItems tolerates the portal's habit of returning a single object
// instead of an array when exactly one item matches.
type portalItems[T any] struct {
	items []T
}

func (p *portalItems[T]) UnmarshalJSON(data []byte) error {
	var list []T
	if err := json.Unmarshal(data, &list); err == nil {
		p.items = list
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	p.items = []T{one}
	return nil
}

type portalResponse[T any] struct {
	Response struct {
		Body struct {
			Items struct {
				Item portalItems[T] `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

type brTitleItem struct {
	BldNm         string      `json:"bldNm"`
	MainPurpsCdNm string      `json:"mainPurpsCdNm"`
	EtcPurps      string      `json:"etcPurps"`
	TotArea       json.Number `json:"totArea"`
	ArchArea      json.Number `json:"archArea"`
	PlatArea      json.Number `json:"platArea"`
	VlRatEstmArea json.Number `json:"vlRatEstmTotArea"`
	BcRat         json.Number `json:"bcRat"`
	VlRat         json.Number `json:"vlRat"`
	Heit          json.Number `json:"heit"`
	StrctCdNm     string      `json:"strctCdNm"`
	GrndFlrCnt    json.Number `json:"grndFlrCnt"`
	UgrndFlrCnt   json.Number `json:"ugrndFlrCnt"`
	IndrMechUtcnt json.Number `json:"indrMechUtcnt"`
	OudrMechUtcnt json.Number `json:"oudrMechUtcnt"`
	IndrAutoUtcnt json.Number `json:"indrAutoUtcnt"`
	OudrAutoUtcnt json.Number `json:"oudrAutoUtcnt"`
	PkngCnt       json.Number `json:"pkngCnt"`
	HhldCnt       json.Number `json:"hhldCnt"`
	UseAprDay     string      `json:"useAprDay"`
}

// BuildingRegistry fetches the building-register title entries for a parcel.
// The register keys lots by plot-type flag, and the flag encoded in the PNU
// is not always how the register filed the lot, so a miss with the normal
// flag retries with the mountain flag.
func (d *DataGoClient) BuildingRegistry(ctx context.Context, parcelID string) (*BuildingRegistryResult, error) {
	parts := pnu.Decode(parcelID)

	var items []brTitleItem
	for _, platGb := range []string{pnu.PlotNormal, pnu.PlotMountain} {
		q := url.Values{
			"serviceKey": {d.apiKey},
			"sigunguCd":  {parts.RegionCode},
			"bjdongCd":   {parts.SubDistrictCode},
			"platGbCd":   {platGb},
			"bun":        {parts.MainLot},
			"ji":         {parts.SubLot},
			"numOfRows":  {"10"},
			"pageNo":     {"1"},
			"_type":      {"json"},
		}
		var resp portalResponse[brTitleItem]
		if err := d.http.getJSON(ctx, d.baseURL+buildingPath+"?"+q.Encode(), nil, &resp); err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "datago: building registry", err)
		}
		items = resp.Response.Body.Items.Item.items
		if len(items) > 0 {
			break
		}
	}

	out := &BuildingRegistryResult{}
	for _, item := range items {
		if item.MainPurpsCdNm == "" {
			continue
		}
		b := model.Building{
			Name:           item.BldNm,
			MainPurpose:    item.MainPurpsCdNm,
			EtcPurpose:     item.EtcPurps,
			TotalArea:      num(item.TotArea),
			BuildingArea:   num(item.ArchArea),
			PlatArea:       num(item.PlatArea),
			FARCountArea:   num(item.VlRatEstmArea),
			CoverageRatio:  num(item.BcRat),
			FARRatio:       num(item.VlRat),
			Height:         num(item.Heit),
			Structure:      item.StrctCdNm,
			FloorsAbove:    int(num(item.GrndFlrCnt)),
			FloorsBelow:    int(num(item.UgrndFlrCnt)),
			ParkingCount:   int(num(item.IndrMechUtcnt) + num(item.OudrMechUtcnt) + num(item.IndrAutoUtcnt) + num(item.OudrAutoUtcnt) + num(item.PkngCnt)),
			HouseholdCount: int(num(item.HhldCnt)),
			ApprovalDate:   item.UseAprDay,
		}
		out.Buildings = append(out.Buildings, b)
	}
	out.Exists = len(out.Buildings) > 0
	return out, nil
}

type landCharItem struct {
	LndpclAr        json.Number `json:"lndpclAr"`
	LndcgrCodeNm    string      `json:"lndcgrCodeNm"`
	PblntfPclnd     json.Number `json:"pblntfPclnd"`
	PrposArea1Nm    string      `json:"prposArea1Nm"`
	TpgrphHgCodeNm  string      `json:"tpgrphHgCodeNm"`
	TpgrphFrmCodeNm string      `json:"tpgrphFrmCodeNm"`
	RoadSideCodeNm  string      `json:"roadSideCodeNm"`
}

type landCharResponse struct {
	LandCharacteristicss struct {
		Field []landCharItem `json:"field"`
	} `json:"landCharacteristicss"`
	Response struct {
		Body struct {
			Items struct {
				Item portalItems[landCharItem] `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

// LandCharacteristics fetches the national land-characteristics record,
// the last-resort source for area, category and price.
func (d *DataGoClient) LandCharacteristics(ctx context.Context, parcelID string) (*LandCharacteristicsResult, error) {
	q := url.Values{
		"serviceKey": {d.apiKey},
		"pnu":        {parcelID},
		"format":     {"json"},
		"numOfRows":  {"1"},
		"pageNo":     {"1"},
	}
	var resp landCharResponse
	if err := d.http.getJSON(ctx, d.landCharBase+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "datago: land characteristics", err)
	}

	items := resp.LandCharacteristicss.Field
	if len(items) == 0 {
		items = resp.Response.Body.Items.Item.items
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "datago: land characteristics not found")
	}

	item := items[0]
	category := item.LndcgrCodeNm
	if category == "" {
		category = "대"
	}
	return &LandCharacteristicsResult{
		Area:          num(item.LndpclAr),
		LandCategory:  category,
		OfficialPrice: num(item.PblntfPclnd),
		UseZone:       item.PrposArea1Nm,
		TerrainHeight: dashDefault(item.TpgrphHgCodeNm),
		TerrainShape:  dashDefault(item.TpgrphFrmCodeNm),
		RoadSide:      dashDefault(item.RoadSideCodeNm),
	}, nil
}

type regulationItem struct {
	PrpsAreaNm string `json:"prpsAreaNm"`
	RgltContnt string `json:"rgltContnt"`
	StatutNm   string `json:"statutNm"`
}

// LandUseRegulations fetches the behavioral restrictions applying to a
// parcel under each of its designations.
func (d *DataGoClient) LandUseRegulations(ctx context.Context, parcelID string) ([]model.Regulation, error) {
	q := url.Values{
		"serviceKey": {d.apiKey},
		"pnu":        {parcelID},
		"numOfRows":  {"100"},
		"pageNo":     {"1"},
		"_type":      {"json"},
	}
	var resp portalResponse[regulationItem]
	if err := d.http.getJSON(ctx, d.baseURL+regulationPath+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "datago: land use regulations", err)
	}

	var regs []model.Regulation
	for _, item := range resp.Response.Body.Items.Item.items {
		regs = append(regs, model.Regulation{
			ZoneName:    item.PrpsAreaNm,
			Restriction: item.RgltContnt,
			LawName:     item.StatutNm,
		})
	}
	return regs, nil
}

func num(n json.Number) float64 {
	v, _ := n.Float64()
	return v
}

func dashDefault(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
