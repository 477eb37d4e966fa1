package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jejulab/landmass/internal/model"
)

// Pool is the subset of pgxpool.Pool the store relies on. It lets tests
// substitute pgxmock without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS parcels (
	pnu         TEXT PRIMARY KEY,
	attributes  JSONB NOT NULL,
	area        DOUBLE PRECISION NOT NULL DEFAULT 0,
	use_zone    TEXT NOT NULL DEFAULT '',
	resolved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mass_studies (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	pnu        TEXT NOT NULL,
	study      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_parcels_use_zone ON parcels(use_zone);
CREATE INDEX IF NOT EXISTS idx_mass_studies_pnu ON mass_studies(pnu);
CREATE INDEX IF NOT EXISTS idx_mass_studies_created_at ON mass_studies(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveParcel(ctx context.Context, land *model.LandAttributes) error {
	data, err := json.Marshal(land)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal parcel")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO parcels (pnu, attributes, area, use_zone, resolved_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (pnu) DO UPDATE SET
		   attributes = EXCLUDED.attributes,
		   area = EXCLUDED.area,
		   use_zone = EXCLUDED.use_zone,
		   resolved_at = EXCLUDED.resolved_at`,
		land.PNU, data, land.Area, land.UseZone, timeOrNow(land.ResolvedAt).UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert parcel %s", land.PNU)
}

func (s *PostgresStore) GetParcel(ctx context.Context, pnu string) (*model.LandAttributes, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT attributes FROM parcels WHERE pnu = $1`, pnu,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select parcel %s", pnu)
	}

	var land model.LandAttributes
	if err := json.Unmarshal(data, &land); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal parcel %s", pnu)
	}
	return &land, nil
}

func (s *PostgresStore) SaveMassStudy(ctx context.Context, study *model.MassStudy) error {
	data, err := json.Marshal(study)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal mass study")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO mass_studies (id, pnu, study, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET study = EXCLUDED.study`,
		study.ID.String(), study.PNU, data, timeOrNow(study.CreatedAt).UTC(),
	)
	return eris.Wrapf(err, "postgres: insert mass study %s", study.ID)
}

func (s *PostgresStore) GetMassStudy(ctx context.Context, id uuid.UUID) (*model.MassStudy, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT study FROM mass_studies WHERE id = $1`, id.String(),
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select mass study %s", id)
	}

	var study model.MassStudy
	if err := json.Unmarshal(data, &study); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal mass study %s", id)
	}
	return &study, nil
}

func (s *PostgresStore) ListMassStudies(ctx context.Context, limit int) ([]model.MassStudy, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT study FROM mass_studies ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list mass studies")
	}
	defer rows.Close()

	var studies []model.MassStudy
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mass study")
		}
		var study model.MassStudy
		if err := json.Unmarshal(data, &study); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal mass study")
		}
		studies = append(studies, study)
	}
	return studies, eris.Wrap(rows.Err(), "postgres: iterate mass studies")
}

var _ Store = (*PostgresStore)(nil)
