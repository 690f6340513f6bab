package export

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ExportRepository interface {
	Create(ctx context.Context, e *Export) error
	GetByID(ctx context.Context, id uuid.UUID) (*Export, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Export, int, error)
	RecordDownload(ctx context.Context, id uuid.UUID, at time.Time) error
	ListExpired(ctx context.Context, now time.Time) ([]*Export, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
