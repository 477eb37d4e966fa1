package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jejulab/landmass/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "landmass.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testParcel(pnu string) *model.LandAttributes {
	return &model.LandAttributes{
		PNU:          pnu,
		AddressJibun: "제주특별자치도 제주시 이도이동 50-11",
		Area:         330.5,
		UseZone:      "제2종일반주거지역",
		LandCategory: "대",
		Longitude:    126.5312,
		Latitude:     33.4996,
		ResolvedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStore_ParcelRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	land := testParcel("5011010300100500011")
	require.NoError(t, s.SaveParcel(ctx, land))

	got, err := s.GetParcel(ctx, land.PNU)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, land.PNU, got.PNU)
	assert.Equal(t, 330.5, got.Area)
	assert.Equal(t, "제2종일반주거지역", got.UseZone)
	assert.True(t, got.ResolvedAt.Equal(land.ResolvedAt))
}

func TestSQLiteStore_SaveParcel_Upsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	land := testParcel("5011010300100500011")
	require.NoError(t, s.SaveParcel(ctx, land))

	land.Area = 412.0
	land.UseZone = "계획관리지역"
	require.NoError(t, s.SaveParcel(ctx, land))

	got, err := s.GetParcel(ctx, land.PNU)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 412.0, got.Area)
	assert.Equal(t, "계획관리지역", got.UseZone)
}

func TestSQLiteStore_GetParcel_Absent(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.GetParcel(context.Background(), "0000000000000000000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_MassStudyRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	study := &model.MassStudy{
		ID:             uuid.New(),
		PNU:            "5011010300100500011",
		BuildingType:   "단독주택",
		TargetFloors:   3,
		BuildingArea:   198,
		TotalFloorArea: 594,
		CoverageRatio:  60,
		FARRatio:       180,
		Floors:         3,
		Height:         9.0,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveMassStudy(ctx, study))

	got, err := s.GetMassStudy(ctx, study.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, study.ID, got.ID)
	assert.Equal(t, 3, got.Floors)
	assert.Equal(t, 594.0, got.TotalFloorArea)
}

func TestSQLiteStore_GetMassStudy_Absent(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.GetMassStudy(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListMassStudies_Ordering(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		study := &model.MassStudy{
			ID:        uuid.New(),
			PNU:       "5011010300100500011",
			Floors:    i + 1,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.SaveMassStudy(ctx, study))
	}

	studies, err := s.ListMassStudies(ctx, 2)
	require.NoError(t, err)
	require.Len(t, studies, 2)
	assert.Equal(t, 3, studies[0].Floors)
	assert.Equal(t, 2, studies[1].Floors)
}
