// Package jobs runs the background work the API does not do inline:
// normalizing freshly uploaded datasets, purging expired exports, and
// generating monthly invoices.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mist/datasteward/internal/domain/dataset"
)

// DatasetQueue lists datasets awaiting normalization.
type DatasetQueue interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]*dataset.Dataset, error)
}

// Normalizer runs the normalization pipeline for one dataset.
type Normalizer interface {
	RunNormalization(ctx context.Context, id uuid.UUID) error
}

// ExportJanitor removes expired export files and records.
type ExportJanitor interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// InvoiceRunner generates invoices for the previous billing period.
type InvoiceRunner interface {
	GenerateMonthlyInvoices(ctx context.Context) (int, error)
}

// Dispatcher drives the background loops. Intervals are exported so callers
// can tighten them in tests.
type Dispatcher struct {
	queue      DatasetQueue
	normalizer Normalizer
	exports    ExportJanitor
	invoices   InvoiceRunner
	logger     zerolog.Logger

	// PollInterval controls how often uploaded datasets are picked up.
	PollInterval time.Duration
	// BatchSize is the max number of datasets normalized per tick.
	BatchSize int
	// NormalizeTimeout bounds a single normalization run.
	NormalizeTimeout time.Duration
	// CleanupInterval controls how often expired exports are purged.
	CleanupInterval time.Duration
	// InvoiceInterval controls how often invoice generation is attempted.
	// Generation itself is idempotent per billing period.
	InvoiceInterval time.Duration
}

func NewDispatcher(queue DatasetQueue, normalizer Normalizer, exports ExportJanitor, invoices InvoiceRunner, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:            queue,
		normalizer:       normalizer,
		exports:          exports,
		invoices:         invoices,
		logger:           logger,
		PollInterval:     5 * time.Second,
		BatchSize:        10,
		NormalizeTimeout: 2 * time.Minute,
		CleanupInterval:  1 * time.Hour,
		InvoiceInterval:  24 * time.Hour,
	}
}

// Start runs the normalization, cleanup, and invoicing loops. It blocks until
// ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	pollTicker := time.NewTicker(d.PollInterval)
	cleanupTicker := time.NewTicker(d.CleanupInterval)
	invoiceTicker := time.NewTicker(d.InvoiceInterval)
	defer pollTicker.Stop()
	defer cleanupTicker.Stop()
	defer invoiceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			d.NormalizePending(ctx)
		case <-cleanupTicker.C:
			d.CleanupExports(ctx)
		case <-invoiceTicker.C:
			d.RunInvoicing(ctx)
		}
	}
}

// NormalizePending picks up uploaded datasets and normalizes them one at a
// time, each under its own timeout.
func (d *Dispatcher) NormalizePending(ctx context.Context) {
	pending, err := d.queue.ListByStatus(ctx, dataset.StatusUploaded, d.BatchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to list pending datasets")
		return
	}

	for _, ds := range pending {
		runCtx, cancel := context.WithTimeout(ctx, d.NormalizeTimeout)
		err := d.normalizer.RunNormalization(runCtx, ds.ID)
		cancel()
		if err != nil {
			d.logger.Error().Err(err).
				Str("dataset", ds.ID.String()).
				Str("file", ds.FileName).
				Msg("normalization failed")
			continue
		}
		d.logger.Info().
			Str("dataset", ds.ID.String()).
			Str("file", ds.FileName).
			Msg("dataset normalized")
	}
}

// CleanupExports purges expired exports and their stored files.
func (d *Dispatcher) CleanupExports(ctx context.Context) {
	n, err := d.exports.CleanupExpired(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("export cleanup failed")
		return
	}
	if n > 0 {
		d.logger.Info().Int("removed", n).Msg("expired exports removed")
	}
}

// RunInvoicing generates invoices for the previous calendar month.
func (d *Dispatcher) RunInvoicing(ctx context.Context) {
	n, err := d.invoices.GenerateMonthlyInvoices(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("invoice generation failed")
		return
	}
	if n > 0 {
		d.logger.Info().Int("created", n).Msg("monthly invoices generated")
	}
}
