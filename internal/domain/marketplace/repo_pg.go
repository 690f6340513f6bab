package marketplace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mist/datasteward/internal/platform/db"
)

type listingRepoPG struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) ListingRepository {
	return &listingRepoPG{pool: pool}
}

func (r *listingRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const listingCols = `d.id, d.owner_id, d.file_name, d.description, d.price,
	d.total_records, d.data_categories, d.confidence_score, d.status, d.is_for_sale,
	u.organization, d.created_at`

const listingFrom = ` FROM datasets d JOIN users u ON u.id = d.owner_id`

func (r *listingRepoPG) ListForSale(ctx context.Context, excludeOwner uuid.UUID, limit, offset int) ([]*Listing, int, error) {
	const where = ` WHERE d.is_for_sale = TRUE AND d.status = 'normalized' AND d.owner_id <> $1`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*)`+listingFrom+where, excludeOwner).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+listingCols+listingFrom+where+` ORDER BY d.created_at DESC LIMIT $2 OFFSET $3`,
		excludeOwner, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	listings, err := collectListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *listingRepoPG) GetForSale(ctx context.Context, datasetID uuid.UUID) (*Listing, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+listingCols+listingFrom+` WHERE d.id = $1 AND d.is_for_sale = TRUE`,
		datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings, err := collectListings(rows)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, pgx.ErrNoRows
	}
	return listings[0], nil
}

func (r *listingRepoPG) FindCandidates(ctx context.Context, excludeOwner uuid.UUID, params MatchParams) ([]*Listing, error) {
	query := `SELECT ` + listingCols + listingFrom +
		` WHERE d.is_for_sale = TRUE AND d.owner_id <> $1`
	args := []interface{}{excludeOwner}

	if params.MinConfidence > 0 {
		args = append(args, params.MinConfidence)
		query += fmt.Sprintf(" AND d.confidence_score >= $%d", len(args))
	}
	if params.MinRecords > 0 {
		args = append(args, params.MinRecords)
		query += fmt.Sprintf(" AND d.total_records >= $%d", len(args))
	}
	if params.MaxPrice != nil {
		args = append(args, *params.MaxPrice)
		query += fmt.Sprintf(" AND d.price <= $%d", len(args))
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *listingRepoPG) Search(ctx context.Context, params SearchParams) ([]*Listing, error) {
	query := `SELECT ` + listingCols + listingFrom + ` WHERE d.is_for_sale = TRUE`
	var args []interface{}

	if params.Query != "" {
		args = append(args, "%"+params.Query+"%")
		query += fmt.Sprintf(" AND (d.file_name ILIKE $%d OR d.description ILIKE $%d)", len(args), len(args))
	}
	if params.Category != "" {
		args = append(args, params.Category)
		query += fmt.Sprintf(" AND d.data_categories ? $%d", len(args))
	}
	if params.MinPrice != nil {
		args = append(args, *params.MinPrice)
		query += fmt.Sprintf(" AND d.price >= $%d", len(args))
	}
	if params.MaxPrice != nil {
		args = append(args, *params.MaxPrice)
		query += fmt.Sprintf(" AND d.price <= $%d", len(args))
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY d.confidence_score DESC NULLS LAST LIMIT $%d", len(args))

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *listingRepoPG) Aggregate(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(price) FILTER (WHERE price IS NOT NULL), 0),
		       COALESCE(SUM(total_records), 0)
		FROM datasets WHERE is_for_sale = TRUE`).
		Scan(&s.TotalListings, &s.AveragePrice, &s.TotalRecordsAvailable)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectListings(rows pgx.Rows) ([]*Listing, error) {
	var listings []*Listing
	for rows.Next() {
		var l Listing
		err := rows.Scan(
			&l.DatasetID, &l.OwnerID, &l.FileName, &l.Description, &l.Price,
			&l.TotalRecords, &l.DataCategories, &l.ConfidenceScore, &l.Status, &l.IsForSale,
			&l.SellerOrganization, &l.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		listings = append(listings, &l)
	}
	return listings, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
