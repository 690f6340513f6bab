package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mist/datasteward/internal/domain/billing"
	"github.com/mist/datasteward/internal/domain/dataset"
	"github.com/mist/datasteward/internal/domain/identity"
)

// UserStore is the slice of the user repository the admin surface needs.
type UserStore interface {
	List(ctx context.Context, limit, offset int) ([]*identity.User, int, error)
	Count(ctx context.Context) (int, error)
}

// DatasetStore is the slice of the dataset repository the admin surface needs.
type DatasetStore interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*dataset.Dataset, int, error)
	ListRecentByOwner(ctx context.Context, ownerID uuid.UUID, n int) ([]*dataset.Dataset, error)
	Count(ctx context.Context) (int, error)
	CountForSale(ctx context.Context) (int, error)
}

// LedgerStore is the slice of the billing ledger the admin surface needs.
type LedgerStore interface {
	SumAmountByType(ctx context.Context, transactionType string) (float64, error)
	Count(ctx context.Context) (int, error)
}

type Service struct {
	users    UserStore
	datasets DatasetStore
	ledger   LedgerStore
}

func NewService(users UserStore, datasets DatasetStore, ledger LedgerStore) *Service {
	return &Service{users: users, datasets: datasets, ledger: ledger}
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*identity.User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// PlatformStats gathers the counters shown on the admin overview. Revenue is
// the sum of commission ledger entries.
func (s *Service) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{}
	var err error

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if stats.TotalDatasets, err = s.datasets.Count(ctx); err != nil {
		return nil, fmt.Errorf("counting datasets: %w", err)
	}
	if stats.TotalTransactions, err = s.ledger.Count(ctx); err != nil {
		return nil, fmt.Errorf("counting transactions: %w", err)
	}
	if stats.TotalRevenue, err = s.ledger.SumAmountByType(ctx, billing.TypeCommission); err != nil {
		return nil, fmt.Errorf("summing revenue: %w", err)
	}
	if stats.ActiveListings, err = s.datasets.CountForSale(ctx); err != nil {
		return nil, fmt.Errorf("counting listings: %w", err)
	}
	return stats, nil
}

// Dashboard summarizes the user's datasets and the five most recent uploads.
func (s *Service) Dashboard(ctx context.Context, user *identity.User) (*DashboardStats, error) {
	_, total, err := s.datasets.ListByOwner(ctx, user.ID, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("counting owned datasets: %w", err)
	}

	stats := &DashboardStats{
		TotalDatasets: total,
		TotalEarnings: user.TotalEarnings,
		RecentUploads: []*dataset.Dataset{},
	}

	if total > 0 {
		owned, _, err := s.datasets.ListByOwner(ctx, user.ID, total, 0)
		if err != nil {
			return nil, fmt.Errorf("listing owned datasets: %w", err)
		}
		for _, d := range owned {
			if d.Status == dataset.StatusNormalized {
				stats.NormalizedDatasets++
			}
			stats.TotalRecords += d.TotalRecords
		}
	}

	recent, err := s.datasets.ListRecentByOwner(ctx, user.ID, 5)
	if err != nil {
		return nil, fmt.Errorf("listing recent uploads: %w", err)
	}
	if recent != nil {
		stats.RecentUploads = recent
	}
	return stats, nil
}
