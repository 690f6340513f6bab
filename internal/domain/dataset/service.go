package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mist/datasteward/internal/normalize"
	"github.com/mist/datasteward/internal/platform/blobstore"
)

var (
	ErrNotFound          = fmt.Errorf("dataset not found")
	ErrUnsupportedFormat = fmt.Errorf("unsupported file format")
	ErrConsentNotAgreed  = fmt.Errorf("consent must be agreed to")
)

// formatFromFileName derives the declared source format from the file
// extension.
func formatFromFileName(name string) (normalize.Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "csv":
		return normalize.FormatCSV, nil
	case "json":
		return normalize.FormatJSON, nil
	case "hl7":
		return normalize.FormatHL7, nil
	case "fhir":
		return normalize.FormatFHIR, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

type Service struct {
	datasets DatasetRepository
	mappings MappingRepository
	store    blobstore.Store
	engine   *normalize.Engine
	now      func() time.Time
}

func NewService(datasets DatasetRepository, mappings MappingRepository, store blobstore.Store, engine *normalize.Engine) *Service {
	return &Service{
		datasets: datasets,
		mappings: mappings,
		store:    store,
		engine:   engine,
		now:      time.Now,
	}
}

// Upload stores a raw file and registers a dataset at status uploaded.
// Normalization runs asynchronously.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, fileName string, content io.Reader) (*Dataset, error) {
	format, err := formatFromFileName(fileName)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Save(ctx, blobstore.TierUpload, fileName, content)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		OwnerID:        ownerID,
		FileName:       fileName,
		OriginalFormat: string(format),
		FileSize:       info.Size,
		UploadFileID:   info.ID,
		Status:         StatusUploaded,
		Anonymization:  AnonymizationSafeHarbor,
	}
	if err := s.datasets.Create(ctx, d); err != nil {
		_ = s.store.Delete(ctx, blobstore.TierUpload, info.ID)
		return nil, fmt.Errorf("creating dataset: %w", err)
	}
	return d, nil
}

// Get returns a dataset owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Dataset, error) {
	d, err := s.datasets.GetByID(ctx, id)
	if err != nil || d.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Dataset, int, error) {
	return s.datasets.ListByOwner(ctx, ownerID, limit, offset)
}

// Update applies the seller-editable fields.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, req *UpdateRequest) (*Dataset, error) {
	d, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if req.Description != nil {
		d.Description = req.Description
	}
	if req.IsForSale != nil {
		d.IsForSale = *req.IsForSale
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("price must not be negative")
		}
		d.Price = req.Price
	}
	if err := s.datasets.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("updating dataset: %w", err)
	}
	return d, nil
}

// Delete removes the dataset record and its stored files.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	d, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	// Blob removal is best effort; the record is authoritative.
	if d.UploadFileID != "" {
		_ = s.store.Delete(ctx, blobstore.TierUpload, d.UploadFileID)
	}
	if d.NormalizedFileID != nil {
		_ = s.store.Delete(ctx, blobstore.TierNormalized, *d.NormalizedFileID)
	}
	return s.datasets.Delete(ctx, id)
}

func (s *Service) Mappings(ctx context.Context, ownerID, id uuid.UUID) ([]*Mapping, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.mappings.ListByDataset(ctx, id)
}

// Consent records data-usage consent and issues a consent token derived from
// the owner, dataset, consent text, and timestamp.
func (s *Service) Consent(ctx context.Context, ownerID uuid.UUID, req *ConsentRequest) (*ConsentResponse, error) {
	d, err := s.Get(ctx, ownerID, req.DatasetID)
	if err != nil {
		return nil, err
	}
	if !req.Agreed {
		return nil, ErrConsentNotAgreed
	}

	ts := s.now().UTC()
	payload := fmt.Sprintf("%s:%s:%s:%s", ownerID, d.ID, ts.Format(time.RFC3339), req.ConsentText)
	token := fmt.Sprintf("%x", sha256.Sum256([]byte(payload)))

	if err := s.datasets.SetConsentToken(ctx, d.ID, token); err != nil {
		return nil, fmt.Errorf("recording consent: %w", err)
	}
	return &ConsentResponse{DatasetID: d.ID, ConsentToken: token, Timestamp: ts}, nil
}

// RunNormalization processes one uploaded dataset through the normalization
// pipeline: uploaded → processing → normalized, or failed with the error
// recorded. Called by the background dispatcher.
func (s *Service) RunNormalization(ctx context.Context, id uuid.UUID) error {
	d, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	if d.Status != StatusUploaded {
		return fmt.Errorf("dataset %s is not awaiting normalization (status %s)", id, d.Status)
	}

	if err := s.datasets.UpdateStatus(ctx, id, StatusProcessing, nil); err != nil {
		return fmt.Errorf("marking processing: %w", err)
	}

	result, fileID, err := s.normalizeStored(ctx, d)
	if err != nil {
		msg := err.Error()
		if stErr := s.datasets.UpdateStatus(ctx, id, StatusFailed, &msg); stErr != nil {
			return fmt.Errorf("marking failed: %w", stErr)
		}
		return err
	}

	score := result.Metadata.ConfidenceScore
	d.Status = StatusNormalized
	d.NormalizedFileID = &fileID
	d.TotalRecords = result.Metadata.TotalRecords
	d.NormalizedCount = result.Metadata.NormalizedRecords
	d.ConfidenceScore = &score
	d.DataCategories = []string{string(result.Metadata.Category)}

	if err := s.datasets.SetNormalizationResult(ctx, d); err != nil {
		return fmt.Errorf("persisting normalization result: %w", err)
	}

	mappings := make([]*Mapping, 0, len(result.Metadata.FieldMappings))
	for _, fm := range result.Metadata.FieldMappings {
		mappings = append(mappings, &Mapping{
			SourceField: fm.SourceField,
			TargetField: fm.TargetField,
			Confidence:  fm.Confidence,
		})
	}
	if err := s.mappings.ReplaceForDataset(ctx, id, mappings); err != nil {
		return fmt.Errorf("persisting mappings: %w", err)
	}
	return nil
}

// normalizeStored reads the raw upload, runs the pipeline, and writes the
// normalized output to the normalized tier.
func (s *Service) normalizeStored(ctx context.Context, d *Dataset) (*normalize.Result, string, error) {
	rc, _, err := s.store.Open(ctx, blobstore.TierUpload, d.UploadFileID)
	if err != nil {
		return nil, "", fmt.Errorf("opening upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}

	result, err := s.engine.Normalize(data, normalize.Format(d.OriginalFormat))
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, "", fmt.Errorf("encoding normalized output: %w", err)
	}
	info, err := s.store.Save(ctx, blobstore.TierNormalized, d.FileName+".mdf.json", strings.NewReader(string(out)))
	if err != nil {
		return nil, "", fmt.Errorf("storing normalized output: %w", err)
	}
	return result, info.ID, nil
}

// OpenNormalized returns the normalized output of a dataset for export.
func (s *Service) OpenNormalized(ctx context.Context, d *Dataset) (*normalize.Result, error) {
	if d.Status != StatusNormalized || d.NormalizedFileID == nil {
		return nil, fmt.Errorf("dataset must be normalized before export")
	}
	rc, _, err := s.store.Open(ctx, blobstore.TierNormalized, *d.NormalizedFileID)
	if err != nil {
		return nil, fmt.Errorf("opening normalized output: %w", err)
	}
	defer rc.Close()

	var result normalize.Result
	if err := json.NewDecoder(rc).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding normalized output: %w", err)
	}
	return &result, nil
}
