package export

import (
	"time"

	"github.com/google/uuid"
)

// Export output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// TTL is how long an export stays downloadable.
const TTL = 7 * 24 * time.Hour

// Export maps to the exports table.
type Export struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	DatasetID      uuid.UUID  `db:"dataset_id" json:"dataset_id"`
	Format         string     `db:"format" json:"format"`
	FileID         string     `db:"file_id" json:"-"`
	FileName       string     `db:"file_name" json:"file_name"`
	FileSize       int64      `db:"file_size" json:"file_size"`
	DownloadCount  int        `db:"download_count" json:"download_count"`
	LastDownloaded *time.Time `db:"last_downloaded" json:"last_downloaded,omitempty"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// CreateRequest asks for an export of a normalized dataset.
type CreateRequest struct {
	DatasetID uuid.UUID `json:"dataset_id"`
	Format    string    `json:"format"`
}
