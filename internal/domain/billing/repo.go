package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error)
	ListSalesByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error)
	SumAmountByType(ctx context.Context, transactionType string) (float64, error)
	SumSalesInPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (float64, error)
	UserIDsWithActivity(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
	Count(ctx context.Context) (int, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	ExistsForPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) (bool, error)
}
