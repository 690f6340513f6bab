package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mist/datasteward/internal/domain/dataset"
	"github.com/mist/datasteward/internal/normalize"
	"github.com/mist/datasteward/internal/platform/blobstore"
)

var (
	ErrNotFound          = fmt.Errorf("export not found")
	ErrExpired           = fmt.Errorf("export has expired")
	ErrUnsupportedFormat = fmt.Errorf("unsupported export format")
	ErrNotNormalized     = fmt.Errorf("dataset must be normalized before export")
)

// DatasetSource provides access to normalized dataset content.
type DatasetSource interface {
	Get(ctx context.Context, ownerID, id uuid.UUID) (*dataset.Dataset, error)
	OpenNormalized(ctx context.Context, d *dataset.Dataset) (*normalize.Result, error)
}

type Service struct {
	exports  ExportRepository
	datasets DatasetSource
	store    blobstore.Store
	now      func() time.Time
}

func NewService(exports ExportRepository, datasets DatasetSource, store blobstore.Store) *Service {
	return &Service{exports: exports, datasets: datasets, store: store, now: time.Now}
}

// Create renders a normalized dataset into the requested format and registers
// a time-limited export.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Export, error) {
	if req.Format != FormatCSV && req.Format != FormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}

	d, err := s.datasets.Get(ctx, userID, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("dataset not found")
	}
	if d.Status != dataset.StatusNormalized {
		return nil, ErrNotNormalized
	}

	result, err := s.datasets.OpenNormalized(ctx, d)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch req.Format {
	case FormatJSON:
		content, err = json.MarshalIndent(result, "", "  ")
	case FormatCSV:
		content, err = renderCSV(result.Rows)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering export: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.%s", strings.TrimSuffix(d.FileName, "."+d.OriginalFormat), d.ID, req.Format)
	info, err := s.store.Save(ctx, blobstore.TierExport, fileName, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("storing export: %w", err)
	}

	e := &Export{
		UserID:    userID,
		DatasetID: d.ID,
		Format:    req.Format,
		FileID:    info.ID,
		FileName:  fileName,
		FileSize:  info.Size,
		ExpiresAt: s.now().UTC().Add(TTL),
	}
	if err := s.exports.Create(ctx, e); err != nil {
		_ = s.store.Delete(ctx, blobstore.TierExport, info.ID)
		return nil, fmt.Errorf("creating export: %w", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Export, int, error) {
	return s.exports.ListByUser(ctx, userID, limit, offset)
}

// Download opens the export content for streaming and records the download.
// Expired exports are refused.
func (s *Service) Download(ctx context.Context, userID, id uuid.UUID) (io.ReadCloser, *Export, error) {
	e, err := s.exports.GetByID(ctx, id)
	if err != nil || e.UserID != userID {
		return nil, nil, ErrNotFound
	}
	if s.now().After(e.ExpiresAt) {
		return nil, nil, ErrExpired
	}

	rc, _, err := s.store.Open(ctx, blobstore.TierExport, e.FileID)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	if err := s.exports.RecordDownload(ctx, e.ID, s.now().UTC()); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("recording download: %w", err)
	}
	return rc, e, nil
}

// CleanupExpired deletes expired export files and records. Returns the number
// removed. Run daily by the background dispatcher.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := s.exports.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("listing expired exports: %w", err)
	}

	removed := 0
	for _, e := range expired {
		_ = s.store.Delete(ctx, blobstore.TierExport, e.FileID)
		if err := s.exports.Delete(ctx, e.ID); err != nil {
			return removed, fmt.Errorf("deleting export %s: %w", e.ID, err)
		}
		removed++
	}
	return removed, nil
}

// renderCSV flattens normalized rows into CSV with a deterministic column
// order.
func renderCSV(rows []map[string]interface{}) ([]byte, error) {
	colSet := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			colSet[k] = true
		}
	}
	columns := make([]string, 0, len(colSet))
	for k := range colSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				record[i] = fmt.Sprintf("%v", v)
			} else {
				record[i] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
