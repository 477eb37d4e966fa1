package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/provider"
)

// The vworld client backs both optional geometry sources in cmd wiring.
var (
	_ GeometrySource  = (*provider.VWorldClient)(nil)
	_ AdjacencySource = (*provider.VWorldClient)(nil)
)

type fakeGeocoder struct {
	res *provider.GeocodeResult
	err error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*provider.GeocodeResult, error) {
	return f.res, f.err
}

type fakeReverseGeocoder struct {
	fakeGeocoder
	rev      *provider.GeocodeResult
	revCalls int
}

func (f *fakeReverseGeocoder) ParcelByPoint(ctx context.Context, x, y float64) (*provider.GeocodeResult, error) {
	f.revCalls++
	return f.rev, nil
}

type fakeCadastral struct {
	res   *provider.CadastralResult
	err   error
	calls int
}

func (f *fakeCadastral) Cadastral(ctx context.Context, pnu string) (*provider.CadastralResult, error) {
	f.calls++
	return f.res, f.err
}

type fakeLandUse struct {
	res *provider.LandUseResult
	err error
}

func (f *fakeLandUse) LandUse(ctx context.Context, pnu string) (*provider.LandUseResult, error) {
	return f.res, f.err
}

type fakeBuildings struct {
	res   *provider.BuildingRegistryResult
	err   error
	calls int
}

func (f *fakeBuildings) BuildingRegistry(ctx context.Context, pnu string) (*provider.BuildingRegistryResult, error) {
	f.calls++
	return f.res, f.err
}

type fakeRegulations struct {
	res   []model.Regulation
	err   error
	calls int
}

func (f *fakeRegulations) LandUseRegulations(ctx context.Context, pnu string) ([]model.Regulation, error) {
	f.calls++
	return f.res, f.err
}

type fakeLandChar struct {
	res   *provider.LandCharacteristicsResult
	err   error
	calls int
}

func (f *fakeLandChar) LandCharacteristics(ctx context.Context, pnu string) (*provider.LandCharacteristicsResult, error) {
	f.calls++
	return f.res, f.err
}

// memStore is an in-memory store.Store for resolver tests.
type memStore struct {
	parcels map[string]*model.LandAttributes
	studies map[uuid.UUID]*model.MassStudy
	saved   int
}

func newMemStore() *memStore {
	return &memStore{
		parcels: map[string]*model.LandAttributes{},
		studies: map[uuid.UUID]*model.MassStudy{},
	}
}

func (m *memStore) SaveParcel(ctx context.Context, land *model.LandAttributes) error {
	cp := *land
	m.parcels[land.PNU] = &cp
	m.saved++
	return nil
}

func (m *memStore) GetParcel(ctx context.Context, pnu string) (*model.LandAttributes, error) {
	if land, ok := m.parcels[pnu]; ok {
		cp := *land
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) SaveMassStudy(ctx context.Context, study *model.MassStudy) error {
	cp := *study
	m.studies[study.ID] = &cp
	return nil
}

func (m *memStore) GetMassStudy(ctx context.Context, id uuid.UUID) (*model.MassStudy, error) {
	if s, ok := m.studies[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListMassStudies(ctx context.Context, limit int) ([]model.MassStudy, error) {
	var out []model.MassStudy
	for _, s := range m.studies {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

func jejuGeocode() *provider.GeocodeResult {
	return &provider.GeocodeResult{
		X:           126.5312,
		Y:           33.4996,
		Address:     "제주특별자치도 제주시 도남동 50-11",
		Code10:      "5011010300",
		Region:      "제주특별자치도",
		SubRegion:   "제주시",
		SubDistrict: "도남동",
		Jibun:       "50-11",
	}
}

func TestNormalizeAddress(t *testing.T) {
	// Addresses already naming the region pass through untouched.
	assert.Equal(t, "제주시 도남동 50-11", NormalizeAddress("제주시 도남동 50-11"))
	assert.Equal(t, "제주특별자치도 서귀포시 표선면 1", NormalizeAddress("제주특별자치도 서귀포시 표선면 1"))
	assert.Equal(t, "제주특별자치도 애월읍 고성리 100", NormalizeAddress("애월읍 고성리 100"))
	assert.Equal(t, "", NormalizeAddress("  "))
}

func TestResolve_MergesAllSources(t *testing.T) {
	src := Sources{
		Geocoder: &fakeGeocoder{res: jejuGeocode()},
		Cadastral: &fakeCadastral{res: &provider.CadastralResult{
			Area:          330.5,
			UseZone:       "제2종일반주거지역",
			LandCategory:  "대",
			OfficialPrice: 1250000,
			Ownership:     "개인",
		}},
		LandUse: &fakeLandUse{res: &provider.LandUseResult{
			Zones: []model.ZoneDesignation{
				{Name: "제2종일반주거지역"},
				{Name: "자연취락지구"},
			},
			PrimaryZone: "제2종일반주거지역",
		}},
		Buildings: &fakeBuildings{res: &provider.BuildingRegistryResult{
			Exists:    true,
			Buildings: []model.Building{{MainPurpose: "단독주택", TotalArea: 99.2}},
		}},
		Regulations: &fakeRegulations{res: []model.Regulation{
			{ZoneName: "제2종일반주거지역", Restriction: "건폐율 60% 이하", LawName: "국토계획법"},
		}},
	}
	st := newMemStore()
	r := New(src, WithStore(st))

	land, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	require.NoError(t, err)

	assert.Equal(t, "5011010300"+"0"+"0050"+"0011", land.PNU)
	assert.Equal(t, 330.5, land.Area)
	assert.Equal(t, "제2종일반주거지역", land.UseZone)
	assert.True(t, land.IsSettlement)
	assert.Equal(t, 1250000.0, land.OfficialLandPrice)
	assert.True(t, land.BuildingExists)
	assert.Len(t, land.Buildings, 1)
	require.Len(t, land.Regulations, 1)
	assert.Equal(t, "건폐율 60% 이하", land.Regulations[0].Restriction)
	assert.Equal(t, 126.5312, land.Longitude)
	assert.False(t, land.ResolvedAt.IsZero())

	// a record with a valid area is persisted
	assert.Equal(t, 1, st.saved)
}

func TestResolve_GeocodeFailureEscalates(t *testing.T) {
	src := Sources{
		Geocoder:  &fakeGeocoder{err: apperr.New(apperr.KindNotFound, "proxy: address not found")},
		Cadastral: &fakeCadastral{},
		LandUse:   &fakeLandUse{},
	}
	r := New(src)

	_, err := r.Resolve(context.Background(), "없는 주소")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResolve_MissingCoordinates(t *testing.T) {
	geo := jejuGeocode()
	geo.X = 0
	src := Sources{
		Geocoder:  &fakeGeocoder{res: geo},
		Cadastral: &fakeCadastral{},
		LandUse:   &fakeLandUse{},
	}
	r := New(src)

	_, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResolve_ReverseGeocodeFallback(t *testing.T) {
	forward := jejuGeocode()
	forward.Code10 = ""
	forward.Jibun = ""

	geocoder := &fakeReverseGeocoder{
		fakeGeocoder: fakeGeocoder{res: forward},
		rev:          jejuGeocode(),
	}
	src := Sources{
		Geocoder:  geocoder,
		Cadastral: &fakeCadastral{res: &provider.CadastralResult{Area: 330, UseZone: "계획관리지역"}},
		LandUse:   &fakeLandUse{},
	}
	r := New(src)

	land, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	require.NoError(t, err)
	assert.Equal(t, 1, geocoder.revCalls)
	assert.Equal(t, "5011010300"+"0"+"0050"+"0011", land.PNU)
}

func TestResolve_SourceFailuresDegrade(t *testing.T) {
	fallback := &fakeLandChar{res: &provider.LandCharacteristicsResult{
		Area:          482,
		OfficialPrice: 98000,
		UseZone:       "계획관리지역",
	}}
	src := Sources{
		Geocoder:    &fakeGeocoder{res: jejuGeocode()},
		Cadastral:   &fakeCadastral{err: apperr.New(apperr.KindUpstreamUnavailable, "down")},
		LandUse:     &fakeLandUse{err: apperr.New(apperr.KindUpstreamUnavailable, "down")},
		Buildings:   &fakeBuildings{err: apperr.New(apperr.KindUpstreamUnavailable, "down")},
		Regulations: &fakeRegulations{err: apperr.New(apperr.KindUpstreamUnavailable, "down")},
		Fallbacks:   []provider.LandCharacteristicsSource{fallback},
	}
	r := New(src)

	land, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	require.NoError(t, err)

	assert.Equal(t, 482.0, land.Area)
	assert.Equal(t, 98000.0, land.OfficialLandPrice)
	assert.Equal(t, "계획관리지역", land.UseZone)
	assert.Empty(t, land.Regulations)
	assert.Equal(t, 1, fallback.calls)
}

func TestResolve_FallbackSkippedWhenAreaKnown(t *testing.T) {
	fallback := &fakeLandChar{res: &provider.LandCharacteristicsResult{Area: 999}}
	src := Sources{
		Geocoder:  &fakeGeocoder{res: jejuGeocode()},
		Cadastral: &fakeCadastral{res: &provider.CadastralResult{Area: 330.5}},
		LandUse:   &fakeLandUse{res: &provider.LandUseResult{}},
		Fallbacks: []provider.LandCharacteristicsSource{fallback},
	}
	r := New(src)

	land, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	require.NoError(t, err)
	assert.Equal(t, 330.5, land.Area)
	assert.Zero(t, fallback.calls)
}

func TestResolve_AreaFromGeometry(t *testing.T) {
	raw := []byte(`{"type": "Polygon", "coordinates": [[[126.0,33.0],[126.0002,33.0],[126.0002,33.0002],[126.0,33.0002],[126.0,33.0]]]}`)
	src := Sources{
		Geocoder:  &fakeGeocoder{res: jejuGeocode()},
		Cadastral: &fakeCadastral{res: &provider.CadastralResult{RawGeometry: raw}},
		LandUse:   &fakeLandUse{res: &provider.LandUseResult{}},
	}
	r := New(src)

	land, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	require.NoError(t, err)

	require.NotNil(t, land.Geometry)
	assert.Greater(t, land.Area, 0.0)
	assert.Greater(t, land.Geometry.Width, 0.0)
}

func TestResolve_ZoneEstimateFromSubDistrict(t *testing.T) {
	tests := []struct {
		subDistrict string
		want        string
	}{
		{"도남동", "제2종일반주거지역"},
		{"표선면", "계획관리지역"},
	}
	for _, tt := range tests {
		t.Run(tt.subDistrict, func(t *testing.T) {
			geo := jejuGeocode()
			geo.SubDistrict = tt.subDistrict
			src := Sources{
				Geocoder:  &fakeGeocoder{res: geo},
				Cadastral: &fakeCadastral{res: &provider.CadastralResult{Area: 100}},
				LandUse:   &fakeLandUse{res: &provider.LandUseResult{}},
			}
			land, err := New(src).Resolve(context.Background(), "제주시 어딘가 1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, land.UseZone)
		})
	}
}

func TestResolveByPNU_StoreShortCircuit(t *testing.T) {
	st := newMemStore()
	st.parcels["5011010300000500011"] = &model.LandAttributes{
		PNU:     "5011010300000500011",
		Area:    330.5,
		UseZone: "제2종일반주거지역",
	}
	cad := &fakeCadastral{}
	buildings := &fakeBuildings{res: &provider.BuildingRegistryResult{Exists: true}}
	regs := &fakeRegulations{res: []model.Regulation{{ZoneName: "자연취락지구", Restriction: "건폐율 40% 이하"}}}
	src := Sources{
		Geocoder:    &fakeGeocoder{},
		Cadastral:   cad,
		LandUse:     &fakeLandUse{res: &provider.LandUseResult{Zones: []model.ZoneDesignation{{Name: "자연취락지구"}}}},
		Buildings:   buildings,
		Regulations: regs,
	}
	r := New(src, WithStore(st))

	land, err := r.ResolveByPNU(context.Background(), "5011010300000500011")
	require.NoError(t, err)

	assert.Equal(t, 330.5, land.Area)
	assert.Zero(t, cad.calls) // cadastre skipped on a store hit
	// volatile fields are refreshed live
	assert.Equal(t, 1, buildings.calls)
	assert.True(t, land.BuildingExists)
	assert.True(t, land.IsSettlement)
	assert.Equal(t, 1, regs.calls)
	require.Len(t, land.Regulations, 1)
	assert.Equal(t, "건폐율 40% 이하", land.Regulations[0].Restriction)
}

func TestResolveByPNU_CascadeAndPersist(t *testing.T) {
	raw := []byte(`{"type": "Polygon", "coordinates": [[[126.0,33.0],[126.0002,33.0],[126.0002,33.0002],[126.0,33.0002],[126.0,33.0]]]}`)
	st := newMemStore()
	src := Sources{
		Geocoder:  &fakeGeocoder{},
		Cadastral: &fakeCadastral{res: &provider.CadastralResult{Area: 330.5, UseZone: "계획관리지역", RawGeometry: raw}},
		LandUse:   &fakeLandUse{res: &provider.LandUseResult{}},
	}
	r := New(src, WithStore(st))

	land, err := r.ResolveByPNU(context.Background(), "5011010300000500011")
	require.NoError(t, err)

	assert.Equal(t, 330.5, land.Area)
	assert.NotZero(t, land.Longitude) // coordinates backfilled from geometry
	assert.Equal(t, 1, st.saved)
}

func TestResolveByPNU_NothingFound(t *testing.T) {
	src := Sources{
		Geocoder:  &fakeGeocoder{},
		Cadastral: &fakeCadastral{err: apperr.New(apperr.KindNotFound, "no record")},
		LandUse:   &fakeLandUse{err: apperr.New(apperr.KindNotFound, "no record")},
	}
	r := New(src)

	_, err := r.ResolveByPNU(context.Background(), "5011010300000500011")
	assert.Equal(t, apperr.KindParcelNotFound, apperr.KindOf(err))
}

func TestRegulation(t *testing.T) {
	st := newMemStore()
	st.parcels["5011010300000500011"] = &model.LandAttributes{
		PNU:          "5011010300000500011",
		AddressJibun: "제주시 도남동 50-11",
		Area:         500,
		UseZone:      "제2종일반주거지역",
	}
	src := Sources{
		Geocoder:  &fakeGeocoder{},
		Cadastral: &fakeCadastral{},
		LandUse:   &fakeLandUse{res: &provider.LandUseResult{}},
	}
	r := New(src, WithStore(st))

	sum, err := r.Regulation(context.Background(), "5011010300000500011")
	require.NoError(t, err)

	assert.Equal(t, 60.0, sum.Limits.Coverage)
	assert.Equal(t, 250.0, sum.Limits.FAR)
	assert.Equal(t, 300.0, sum.MaxBuildingArea) // 500 * 60%
	assert.Equal(t, 1250.0, sum.MaxFloorArea)   // 500 * 250%
	assert.Equal(t, 1.5, sum.NorthSetback)
}

func TestRegulation_SettlementOverride(t *testing.T) {
	st := newMemStore()
	st.parcels["p"] = &model.LandAttributes{PNU: "p", Area: 400, UseZone: "자연녹지지역"}
	src := Sources{
		Geocoder:  &fakeGeocoder{},
		Cadastral: &fakeCadastral{},
		LandUse: &fakeLandUse{res: &provider.LandUseResult{
			Zones: []model.ZoneDesignation{{Name: "자연취락지구"}},
		}},
	}
	r := New(src, WithStore(st))

	sum, err := r.Regulation(context.Background(), "p")
	require.NoError(t, err)

	assert.Equal(t, 50.0, sum.Limits.Coverage) // settlement in a green zone
	assert.Equal(t, 100.0, sum.Limits.FAR)
	assert.Equal(t, 200.0, sum.MaxBuildingArea)
}

func TestResolve_ResolvedAtUsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := Sources{
		Geocoder:  &fakeGeocoder{res: jejuGeocode()},
		Cadastral: &fakeCadastral{res: &provider.CadastralResult{Area: 10}},
		LandUse:   &fakeLandUse{res: &provider.LandUseResult{}},
	}
	r := New(src)
	r.now = func() time.Time { return fixed }

	land, err := r.Resolve(context.Background(), "제주시 도남동 50-11")
	require.NoError(t, err)
	assert.Equal(t, fixed, land.ResolvedAt)
}
