package dataset

import (
	"context"

	"github.com/google/uuid"
)

type DatasetRepository interface {
	Create(ctx context.Context, d *Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dataset, error)
	Update(ctx context.Context, d *Dataset) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	SetNormalizationResult(ctx context.Context, d *Dataset) error
	SetConsentToken(ctx context.Context, id uuid.UUID, token string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Dataset, int, error)
	ListRecentByOwner(ctx context.Context, ownerID uuid.UUID, n int) ([]*Dataset, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*Dataset, error)
	Count(ctx context.Context) (int, error)
	CountForSale(ctx context.Context) (int, error)
}

type MappingRepository interface {
	ReplaceForDataset(ctx context.Context, datasetID uuid.UUID, mappings []*Mapping) error
	ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*Mapping, error)
}
