package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/config"
	"github.com/jejulab/landmass/internal/model"
)

type fakeResolver struct {
	land     *model.LandAttributes
	summary  *model.RegulationSummary
	roads    []model.RoadInfo
	err      error
	roadsErr error
}

func (f *fakeResolver) Resolve(ctx context.Context, address string) (*model.LandAttributes, error) {
	return f.land, f.err
}

func (f *fakeResolver) ResolveByPNU(ctx context.Context, pnu string) (*model.LandAttributes, error) {
	return f.land, f.err
}

func (f *fakeResolver) Regulation(ctx context.Context, pnu string) (*model.RegulationSummary, error) {
	return f.summary, f.err
}

func (f *fakeResolver) NearbyRoads(ctx context.Context, land *model.LandAttributes) ([]model.RoadInfo, error) {
	return f.roads, f.roadsErr
}

type fakeSolver struct {
	study *model.MassStudy
	err   error
	input model.MassDesignInput
}

func (f *fakeSolver) Solve(land *model.LandAttributes, input model.MassDesignInput) (*model.MassStudy, error) {
	f.input = input
	return f.study, f.err
}

type memStore struct {
	studies map[uuid.UUID]*model.MassStudy
	saved   int
}

func newMemStore() *memStore {
	return &memStore{studies: map[uuid.UUID]*model.MassStudy{}}
}

func (m *memStore) SaveParcel(ctx context.Context, land *model.LandAttributes) error { return nil }
func (m *memStore) GetParcel(ctx context.Context, pnu string) (*model.LandAttributes, error) {
	return nil, nil
}

func (m *memStore) SaveMassStudy(ctx context.Context, study *model.MassStudy) error {
	m.studies[study.ID] = study
	m.saved++
	return nil
}

func (m *memStore) GetMassStudy(ctx context.Context, id uuid.UUID) (*model.MassStudy, error) {
	return m.studies[id], nil
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

func testLand() *model.LandAttributes {
	return &model.LandAttributes{
		PNU:          "5011010300100500011",
		AddressJibun: "제주특별자치도 제주시 이도이동 50-11",
		Area:         330,
		UseZone:      "제2종일반주거지역",
		Longitude:    126.5312,
		Latitude:     33.4996,
	}
}

func newTestServer(res LandResolver, solver MassSolver, st *memStore) http.Handler {
	var srv *Server
	if st == nil {
		srv = New(res, solver, nil, config.ServerConfig{Port: 8080})
	} else {
		srv = New(res, solver, st, config.ServerConfig{Port: 8080})
	}
	return srv.Router()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&fakeResolver{}, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestAnalyze_OK(t *testing.T) {
	res := &fakeResolver{
		land:  testLand(),
		roads: []model.RoadInfo{{Direction: "south", Name: "중앙로"}},
	}
	h := newTestServer(res, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/land/analyze?address=제주시+이도이동+50-11", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]any)
	land := data["land"].(map[string]any)
	assert.Equal(t, "5011010300100500011", land["pnu"])
	roads := data["roads"].([]any)
	require.Len(t, roads, 1)
}

func TestAnalyze_MissingAddress(t *testing.T) {
	h := newTestServer(&fakeResolver{}, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/land/analyze", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestAnalyze_NotFound(t *testing.T) {
	res := &fakeResolver{err: apperr.New(apperr.KindNotFound, "geocoding produced no result")}
	h := newTestServer(res, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/land/analyze?address=nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.KindNotFound, env.Error)
	assert.Equal(t, "geocoding produced no result", env.Message)
}

func TestAnalyze_RoadFailureIsNotFatal(t *testing.T) {
	res := &fakeResolver{
		land:     testLand(),
		roadsErr: apperr.New(apperr.KindUpstreamUnavailable, "kakao down"),
	}
	h := newTestServer(res, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/land/analyze?address=x", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLandByPNU_UpstreamUnavailable(t *testing.T) {
	res := &fakeResolver{err: apperr.New(apperr.KindUpstreamUnavailable, "all sources failed")}
	h := newTestServer(res, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/land/5011010300100500011", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegulation_OK(t *testing.T) {
	res := &fakeResolver{summary: &model.RegulationSummary{
		PNU:             "5011010300100500011",
		ParcelArea:      500,
		UseZone:         "계획관리지역",
		Limits:          model.RegulationLimits{Coverage: 40, FAR: 100},
		NorthSetback:    1.5,
		MaxBuildingArea: 200,
		MaxFloorArea:    500,
	}}
	h := newTestServer(res, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/land/5011010300100500011/regulation", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	assert.Equal(t, 200.0, data["max_building_area"])
}

func TestMassCreate_PersistsStudy(t *testing.T) {
	study := &model.MassStudy{ID: uuid.New(), PNU: "5011010300100500011", Floors: 3}
	st := newMemStore()
	h := newTestServer(&fakeResolver{land: testLand()}, &fakeSolver{study: study}, st)

	body, _ := json.Marshal(model.MassDesignInput{PNU: "5011010300100500011", TargetFloors: 3})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", bytes.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, st.saved)

	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	assert.Equal(t, study.ID.String(), data["id"])
}

func TestMassCreate_MissingPNU(t *testing.T) {
	h := newTestServer(&fakeResolver{}, &fakeSolver{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMassCreate_InvalidSetbacks(t *testing.T) {
	solver := &fakeSolver{err: apperr.New(apperr.KindInvalidSetbacks, "setbacks exceed parcel dimensions")}
	h := newTestServer(&fakeResolver{land: testLand()}, solver, nil)

	body, _ := json.Marshal(model.MassDesignInput{PNU: "5011010300100500011", TargetFloors: 3})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.KindInvalidSetbacks, env.Error)
}

func TestMassCreate_FloorsOutOfRange(t *testing.T) {
	h := newTestServer(&fakeResolver{land: testLand()}, &fakeSolver{}, nil)

	for _, body := range []string{
		`{"pnu": "5011010300100500011"}`,
		`{"pnu": "5011010300100500011", "target_floors": 0}`,
		`{"pnu": "5011010300100500011", "target_floors": 51}`,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, apperr.KindInvalidInput, env.Error, body)
	}
}

func TestMassCreate_OmittedSetbacksGetDefaults(t *testing.T) {
	solver := &fakeSolver{study: &model.MassStudy{ID: uuid.New()}}
	h := newTestServer(&fakeResolver{land: testLand()}, solver, nil)

	body := `{"pnu": "5011010300100500011", "target_floors": 3}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.DefaultSetbacks(), solver.input.Setbacks)
}

func TestMassCreate_PartialSetbacksFillDefaults(t *testing.T) {
	solver := &fakeSolver{study: &model.MassStudy{ID: uuid.New()}}
	h := newTestServer(&fakeResolver{land: testLand()}, solver, nil)

	body := `{"pnu": "5011010300100500011", "target_floors": 3, "setbacks": {"front": 5}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.Setbacks{Front: 5, Back: 2, Left: 1.5, Right: 1.5}, solver.input.Setbacks)
}

func TestMassCreate_NegativeSetbacks(t *testing.T) {
	h := newTestServer(&fakeResolver{land: testLand()}, &fakeSolver{}, nil)

	body := `{"pnu": "5011010300100500011", "target_floors": 3, "setbacks": {"front": -1}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mass", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.KindInvalidSetbacks, env.Error)
}

func TestMassGet_RoundTrip(t *testing.T) {
	study := &model.MassStudy{
		ID:  uuid.New(),
		PNU: "5011010300100500011",
		Geometry: model.BoxGeometry{
			Type:       "box",
			Dimensions: model.BoxDimensions{Width: 15, Height: 9, Depth: 13.2},
		},
	}
	st := newMemStore()
	require.NoError(t, st.SaveMassStudy(context.Background(), study))

	h := newTestServer(&fakeResolver{}, &fakeSolver{}, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mass/"+study.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mass/"+study.ID.String()+"/geometry", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	dims := data["dimensions"].(map[string]any)
	assert.Equal(t, 15.0, dims["width"])
}

func TestMassGet_NotFound(t *testing.T) {
	h := newTestServer(&fakeResolver{}, &fakeSolver{}, newMemStore())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mass/"+uuid.New().String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMassGet_InvalidID(t *testing.T) {
	h := newTestServer(&fakeResolver{}, &fakeSolver{}, newMemStore())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mass/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMassList(t *testing.T) {
	st := newMemStore()
	require.NoError(t, st.SaveMassStudy(context.Background(), &model.MassStudy{ID: uuid.New()}))

	h := newTestServer(&fakeResolver{}, &fakeSolver{}, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mass?limit=10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	items := env.Data.([]any)
	assert.Len(t, items, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mass?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
