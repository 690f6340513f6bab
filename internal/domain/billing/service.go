package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mist/datasteward/internal/domain/identity"
)

type Service struct {
	records  RecordRepository
	invoices InvoiceRepository
	now      func() time.Time
}

func NewService(records RecordRepository, invoices InvoiceRepository) *Service {
	return &Service{records: records, invoices: invoices, now: time.Now}
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListInvoices(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.ListByUser(ctx, userID, limit, offset)
}

// Earnings summarizes a seller's sale activity. Lifetime earnings come from
// the user record; sale counts and averages from the ledger.
func (s *Service) Earnings(ctx context.Context, user *identity.User) (*EarningsSummary, error) {
	sales, err := s.records.ListSalesByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}

	summary := &EarningsSummary{
		TotalEarnings: user.TotalEarnings,
		TotalSales:    len(sales),
	}
	if len(sales) > 0 {
		var sum float64
		for _, sale := range sales {
			sum += sale.Amount
		}
		summary.AverageSalePrice = sum / float64(len(sales))
	}
	if len(sales) > 10 {
		sales = sales[:10]
	}
	summary.RecentSales = sales
	return summary, nil
}

// GenerateMonthlyInvoices creates pending invoices covering the previous
// calendar month for every user with sale proceeds in that period. Users
// already invoiced for the period, or with no positive sale subtotal, are
// skipped. Returns the number of invoices created.
func (s *Service) GenerateMonthlyInvoices(ctx context.Context) (int, error) {
	now := s.now().UTC()
	periodEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodStart := periodEnd.AddDate(0, -1, 0)

	userIDs, err := s.records.UserIDsWithActivity(ctx, periodStart, periodEnd)
	if err != nil {
		return 0, fmt.Errorf("listing active users: %w", err)
	}

	created := 0
	for _, userID := range userIDs {
		exists, err := s.invoices.ExistsForPeriod(ctx, userID, periodStart)
		if err != nil {
			return created, fmt.Errorf("checking existing invoice: %w", err)
		}
		if exists {
			continue
		}

		subtotal, err := s.records.SumSalesInPeriod(ctx, userID, periodStart, periodEnd)
		if err != nil {
			return created, fmt.Errorf("summing sales: %w", err)
		}
		if subtotal <= 0 {
			continue
		}

		inv := &Invoice{
			UserID:        userID,
			InvoiceNumber: s.invoiceNumber(now),
			Status:        InvoicePending,
			Subtotal:      subtotal,
			Tax:           0,
			Total:         subtotal,
			PeriodStart:   periodStart,
			PeriodEnd:     periodEnd,
			DueDate:       now.Add(30 * 24 * time.Hour),
		}
		if err := s.invoices.Create(ctx, inv); err != nil {
			return created, fmt.Errorf("creating invoice: %w", err)
		}
		created++
	}
	return created, nil
}

// invoiceNumber builds "INV-<YYYYMM>-<8 uppercase hex chars>".
func (s *Service) invoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("200601"), suffix)
}
