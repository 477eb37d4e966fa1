// Package store persists resolved parcels and mass studies. Two backends
// are provided: SQLite for single-node use and Postgres for shared
// deployments.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/jejulab/landmass/internal/model"
)

// Store defines the persistence interface for parcels and mass studies.
type Store interface {
	// Parcels. GetParcel returns (nil, nil) for an unknown PNU.
	SaveParcel(ctx context.Context, land *model.LandAttributes) error
	GetParcel(ctx context.Context, pnu string) (*model.LandAttributes, error)

	// Mass studies. GetMassStudy returns (nil, nil) for an unknown id.
	SaveMassStudy(ctx context.Context, study *model.MassStudy) error
	GetMassStudy(ctx context.Context, id uuid.UUID) (*model.MassStudy, error)
	ListMassStudies(ctx context.Context, limit int) ([]model.MassStudy, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
