package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mist/datasteward/internal/platform/db"
)

// -- Record Repository --

type recordRepoPG struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recordCols = `id, user_id, transaction_type, amount, currency,
	buyer_id, seller_id, dataset_id, commission_amount, description, created_at`

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	if rec.Currency == "" {
		rec.Currency = "USD"
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_records (
			id, user_id, transaction_type, amount, currency,
			buyer_id, seller_id, dataset_id, commission_amount, description
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.UserID, rec.TransactionType, rec.Amount, rec.Currency,
		rec.BuyerID, rec.SellerID, rec.DatasetID, rec.CommissionAmount, rec.Description,
	)
	return err
}

func (r *recordRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM billing_records WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM billing_records WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *recordRepoPG) ListSalesByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM billing_records
		 WHERE user_id = $1 AND transaction_type = $2
		 ORDER BY created_at DESC`,
		userID, TypeSale)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *recordRepoPG) SumAmountByType(ctx context.Context, transactionType string) (float64, error) {
	var sum float64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM billing_records WHERE transaction_type = $1`,
		transactionType).Scan(&sum)
	return sum, err
}

func (r *recordRepoPG) SumSalesInPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (float64, error) {
	var sum float64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM billing_records
		WHERE user_id = $1 AND transaction_type = $2
		  AND created_at >= $3 AND created_at < $4`,
		userID, TypeSale, start, end).Scan(&sum)
	return sum, err
}

func (r *recordRepoPG) UserIDsWithActivity(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT user_id FROM billing_records
		WHERE created_at >= $1 AND created_at < $2`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *recordRepoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billing_records`).Scan(&total)
	return total, err
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.TransactionType, &rec.Amount, &rec.Currency,
			&rec.BuyerID, &rec.SellerID, &rec.DatasetID, &rec.CommissionAmount,
			&rec.Description, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, nil
}

// -- Invoice Repository --

type invoiceRepoPG struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepoPG{pool: pool}
}

func (r *invoiceRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invoiceCols = `id, user_id, invoice_number, status, subtotal, tax, total,
	period_start, period_end, due_date, paid_at, created_at`

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	if inv.Status == "" {
		inv.Status = InvoicePending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoices (
			id, user_id, invoice_number, status, subtotal, tax, total,
			period_start, period_end, due_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		inv.ID, inv.UserID, inv.InvoiceNumber, inv.Status, inv.Subtotal, inv.Tax, inv.Total,
		inv.PeriodStart, inv.PeriodEnd, inv.DueDate,
	)
	return err
}

func (r *invoiceRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		var inv Invoice
		err := rows.Scan(
			&inv.ID, &inv.UserID, &inv.InvoiceNumber, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total,
			&inv.PeriodStart, &inv.PeriodEnd, &inv.DueDate, &inv.PaidAt, &inv.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, total, nil
}

func (r *invoiceRepoPG) ExistsForPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM invoices WHERE user_id = $1 AND period_start = $2)`,
		userID, periodStart).Scan(&exists)
	return exists, err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
