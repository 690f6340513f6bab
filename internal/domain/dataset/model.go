package dataset

import (
	"time"

	"github.com/google/uuid"
)

// Dataset lifecycle statuses.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusNormalized = "normalized"
	StatusFailed     = "failed"
)

// AnonymizationSafeHarbor is the only anonymization level the platform
// currently applies.
const AnonymizationSafeHarbor = "hipaa_safe_harbor"

// Dataset maps to the datasets table.
type Dataset struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	OwnerID          uuid.UUID  `db:"owner_id" json:"owner_id"`
	FileName         string     `db:"file_name" json:"file_name"`
	OriginalFormat   string     `db:"original_format" json:"original_format"`
	FileSize         int64      `db:"file_size" json:"file_size"`
	UploadFileID     string     `db:"upload_file_id" json:"-"`
	NormalizedFileID *string    `db:"normalized_file_id" json:"-"`
	Status           string     `db:"status" json:"status"`
	ErrorMessage     *string    `db:"error_message" json:"error_message,omitempty"`
	TotalRecords     int        `db:"total_records" json:"total_records"`
	NormalizedCount  int        `db:"normalized_records" json:"normalized_records"`
	ConfidenceScore  *float64   `db:"confidence_score" json:"confidence_score,omitempty"`
	IsForSale        bool       `db:"is_for_sale" json:"is_for_sale"`
	Price            *float64   `db:"price" json:"price,omitempty"`
	Description      *string    `db:"description" json:"description,omitempty"`
	DataCategories   []string   `db:"data_categories" json:"data_categories,omitempty"`
	ConsentToken     *string    `db:"consent_token" json:"consent_token,omitempty"`
	Anonymization    string     `db:"anonymization_level" json:"anonymization_level"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Mapping maps to the mappings table: one resolved source→canonical field
// pair from a normalization run.
type Mapping struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DatasetID   uuid.UUID `db:"dataset_id" json:"dataset_id"`
	SourceField string    `db:"source_field" json:"source_field"`
	TargetField string    `db:"target_field" json:"target_field"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UpdateRequest carries the seller-editable dataset fields.
type UpdateRequest struct {
	Description *string  `json:"description,omitempty"`
	IsForSale   *bool    `json:"is_for_sale,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// UploadResponse is returned after a successful ingest.
type UploadResponse struct {
	DatasetID uuid.UUID `json:"dataset_id"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// ConsentRequest records data-usage consent for a dataset.
type ConsentRequest struct {
	DatasetID   uuid.UUID `json:"dataset_id"`
	Agreed      bool      `json:"agreed"`
	ConsentText string    `json:"consent_text"`
}

// ConsentResponse carries the issued consent token.
type ConsentResponse struct {
	DatasetID    uuid.UUID `json:"dataset_id"`
	ConsentToken string    `json:"consent_token"`
	Timestamp    time.Time `json:"timestamp"`
}
