package dataset

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mist/datasteward/internal/platform/db"
)

// -- Dataset Repository --

type datasetRepoPG struct {
	pool *pgxpool.Pool
}

func NewDatasetRepo(pool *pgxpool.Pool) DatasetRepository {
	return &datasetRepoPG{pool: pool}
}

func (r *datasetRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const datasetCols = `id, owner_id, file_name, original_format, file_size,
	upload_file_id, normalized_file_id, status, error_message,
	total_records, normalized_records, confidence_score,
	is_for_sale, price, description, data_categories,
	consent_token, anonymization_level, created_at, updated_at`

func (r *datasetRepoPG) Create(ctx context.Context, d *Dataset) error {
	d.ID = uuid.New()
	if d.Status == "" {
		d.Status = StatusUploaded
	}
	if d.Anonymization == "" {
		d.Anonymization = AnonymizationSafeHarbor
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO datasets (
			id, owner_id, file_name, original_format, file_size,
			upload_file_id, status, anonymization_level
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.OwnerID, d.FileName, d.OriginalFormat, d.FileSize,
		d.UploadFileID, d.Status, d.Anonymization,
	)
	return err
}

func (r *datasetRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	return scanDataset(r.conn(ctx).QueryRow(ctx, `SELECT `+datasetCols+` FROM datasets WHERE id = $1`, id))
}

func (r *datasetRepoPG) Update(ctx context.Context, d *Dataset) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE datasets SET
			description = $2, is_for_sale = $3, price = $4,
			updated_at = NOW()
		WHERE id = $1`,
		d.ID, d.Description, d.IsForSale, d.Price,
	)
	return err
}

func (r *datasetRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE datasets SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1`,
		id, status, errorMessage,
	)
	return err
}

func (r *datasetRepoPG) SetNormalizationResult(ctx context.Context, d *Dataset) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE datasets SET
			status = $2, normalized_file_id = $3,
			total_records = $4, normalized_records = $5,
			confidence_score = $6, data_categories = $7,
			error_message = NULL, updated_at = NOW()
		WHERE id = $1`,
		d.ID, d.Status, d.NormalizedFileID,
		d.TotalRecords, d.NormalizedCount,
		d.ConfidenceScore, d.DataCategories,
	)
	return err
}

func (r *datasetRepoPG) SetConsentToken(ctx context.Context, id uuid.UUID, token string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE datasets SET consent_token = $2, updated_at = NOW()
		WHERE id = $1`,
		id, token,
	)
	return err
}

func (r *datasetRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	return err
}

func (r *datasetRepoPG) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Dataset, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM datasets WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+datasetCols+` FROM datasets WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDatasetRows(rows)
		if err != nil {
			return nil, 0, err
		}
		datasets = append(datasets, d)
	}
	return datasets, total, nil
}

func (r *datasetRepoPG) ListRecentByOwner(ctx context.Context, ownerID uuid.UUID, n int) ([]*Dataset, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+datasetCols+` FROM datasets WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		ownerID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDatasetRows(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, nil
}

func (r *datasetRepoPG) ListByStatus(ctx context.Context, status string, limit int) ([]*Dataset, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+datasetCols+` FROM datasets WHERE status = $1
		 ORDER BY created_at ASC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDatasetRows(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, nil
}

func (r *datasetRepoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&total)
	return total, err
}

func (r *datasetRepoPG) CountForSale(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM datasets WHERE is_for_sale = TRUE`).Scan(&total)
	return total, err
}

func scanDataset(row pgx.Row) (*Dataset, error) {
	var d Dataset
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.FileName, &d.OriginalFormat, &d.FileSize,
		&d.UploadFileID, &d.NormalizedFileID, &d.Status, &d.ErrorMessage,
		&d.TotalRecords, &d.NormalizedCount, &d.ConfidenceScore,
		&d.IsForSale, &d.Price, &d.Description, &d.DataCategories,
		&d.ConsentToken, &d.Anonymization, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDatasetRows(rows pgx.Rows) (*Dataset, error) {
	var d Dataset
	err := rows.Scan(
		&d.ID, &d.OwnerID, &d.FileName, &d.OriginalFormat, &d.FileSize,
		&d.UploadFileID, &d.NormalizedFileID, &d.Status, &d.ErrorMessage,
		&d.TotalRecords, &d.NormalizedCount, &d.ConfidenceScore,
		&d.IsForSale, &d.Price, &d.Description, &d.DataCategories,
		&d.ConsentToken, &d.Anonymization, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// -- Mapping Repository --

type mappingRepoPG struct {
	pool *pgxpool.Pool
}

func NewMappingRepo(pool *pgxpool.Pool) MappingRepository {
	return &mappingRepoPG{pool: pool}
}

func (r *mappingRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *mappingRepoPG) ReplaceForDataset(ctx context.Context, datasetID uuid.UUID, mappings []*Mapping) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM mappings WHERE dataset_id = $1`, datasetID); err != nil {
		return err
	}
	for _, m := range mappings {
		m.ID = uuid.New()
		m.DatasetID = datasetID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO mappings (id, dataset_id, source_field, target_field, confidence)
			VALUES ($1,$2,$3,$4,$5)`,
			m.ID, m.DatasetID, m.SourceField, m.TargetField, m.Confidence,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *mappingRepoPG) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*Mapping, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, dataset_id, source_field, target_field, confidence, created_at
		FROM mappings WHERE dataset_id = $1 ORDER BY source_field`,
		datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.ID, &m.DatasetID, &m.SourceField, &m.TargetField, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, &m)
	}
	return mappings, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
