package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jejulab/landmass/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS parcels (
	pnu         TEXT PRIMARY KEY,
	attributes  TEXT NOT NULL,
	area        REAL NOT NULL DEFAULT 0,
	use_zone    TEXT NOT NULL DEFAULT '',
	resolved_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS mass_studies (
	id         TEXT PRIMARY KEY,
	pnu        TEXT NOT NULL,
	study      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parcels_use_zone ON parcels(use_zone);
CREATE INDEX IF NOT EXISTS idx_mass_studies_pnu ON mass_studies(pnu);
CREATE INDEX IF NOT EXISTS idx_mass_studies_created_at ON mass_studies(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveParcel(ctx context.Context, land *model.LandAttributes) error {
	data, err := json.Marshal(land)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal parcel")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO parcels (pnu, attributes, area, use_zone, resolved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pnu) DO UPDATE SET
		   attributes = excluded.attributes,
		   area = excluded.area,
		   use_zone = excluded.use_zone,
		   resolved_at = excluded.resolved_at`,
		land.PNU, string(data), land.Area, land.UseZone, timeOrNow(land.ResolvedAt).UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert parcel %s", land.PNU)
}

func (s *SQLiteStore) GetParcel(ctx context.Context, pnu string) (*model.LandAttributes, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT attributes FROM parcels WHERE pnu = ?`, pnu,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select parcel %s", pnu)
	}

	var land model.LandAttributes
	if err := json.Unmarshal([]byte(data), &land); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal parcel %s", pnu)
	}
	return &land, nil
}

func (s *SQLiteStore) SaveMassStudy(ctx context.Context, study *model.MassStudy) error {
	data, err := json.Marshal(study)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal mass study")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mass_studies (id, pnu, study, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET study = excluded.study`,
		study.ID.String(), study.PNU, string(data), timeOrNow(study.CreatedAt).UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert mass study %s", study.ID)
}

func (s *SQLiteStore) GetMassStudy(ctx context.Context, id uuid.UUID) (*model.MassStudy, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT study FROM mass_studies WHERE id = ?`, id.String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select mass study %s", id)
	}

	var study model.MassStudy
	if err := json.Unmarshal([]byte(data), &study); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal mass study %s", id)
	}
	return &study, nil
}

func (s *SQLiteStore) ListMassStudies(ctx context.Context, limit int) ([]model.MassStudy, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT study FROM mass_studies ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list mass studies")
	}
	defer rows.Close()

	var studies []model.MassStudy
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mass study")
		}
		var study model.MassStudy
		if err := json.Unmarshal([]byte(data), &study); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal mass study")
		}
		studies = append(studies, study)
	}
	return studies, eris.Wrap(rows.Err(), "sqlite: iterate mass studies")
}

var _ Store = (*SQLiteStore)(nil)

// timeOrNow guards against zero timestamps sneaking into NOT NULL columns.
func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
