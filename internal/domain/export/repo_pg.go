package export

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mist/datasteward/internal/platform/db"
)

type exportRepoPG struct {
	pool *pgxpool.Pool
}

func NewExportRepo(pool *pgxpool.Pool) ExportRepository {
	return &exportRepoPG{pool: pool}
}

func (r *exportRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const exportCols = `id, user_id, dataset_id, format, file_id, file_name, file_size,
	download_count, last_downloaded, expires_at, created_at`

func (r *exportRepoPG) Create(ctx context.Context, e *Export) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO exports (
			id, user_id, dataset_id, format, file_id, file_name, file_size, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.UserID, e.DatasetID, e.Format, e.FileID, e.FileName, e.FileSize, e.ExpiresAt,
	)
	return err
}

func (r *exportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Export, error) {
	return scanExport(r.conn(ctx).QueryRow(ctx, `SELECT `+exportCols+` FROM exports WHERE id = $1`, id))
}

func (r *exportRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Export, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM exports WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+exportCols+` FROM exports WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e, err := scanExportRows(rows)
		if err != nil {
			return nil, 0, err
		}
		exports = append(exports, e)
	}
	return exports, total, nil
}

func (r *exportRepoPG) RecordDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE exports SET download_count = download_count + 1, last_downloaded = $2
		WHERE id = $1`,
		id, at,
	)
	return err
}

func (r *exportRepoPG) ListExpired(ctx context.Context, now time.Time) ([]*Export, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+exportCols+` FROM exports WHERE expires_at < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e, err := scanExportRows(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, nil
}

func (r *exportRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM exports WHERE id = $1`, id)
	return err
}

func scanExport(row pgx.Row) (*Export, error) {
	var e Export
	err := row.Scan(
		&e.ID, &e.UserID, &e.DatasetID, &e.Format, &e.FileID, &e.FileName, &e.FileSize,
		&e.DownloadCount, &e.LastDownloaded, &e.ExpiresAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanExportRows(rows pgx.Rows) (*Export, error) {
	var e Export
	err := rows.Scan(
		&e.ID, &e.UserID, &e.DatasetID, &e.Format, &e.FileID, &e.FileName, &e.FileSize,
		&e.DownloadCount, &e.LastDownloaded, &e.ExpiresAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
