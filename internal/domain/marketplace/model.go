package marketplace

import (
	"time"

	"github.com/google/uuid"
)

// Listing is the buyer-facing projection of a sellable dataset.
type Listing struct {
	DatasetID          uuid.UUID `json:"dataset_id"`
	OwnerID            uuid.UUID `json:"-"`
	FileName           string    `json:"file_name"`
	Description        *string   `json:"description,omitempty"`
	Price              *float64  `json:"price,omitempty"`
	TotalRecords       int       `json:"total_records"`
	DataCategories     []string  `json:"data_categories,omitempty"`
	ConfidenceScore    *float64  `json:"confidence_score,omitempty"`
	Status             string    `json:"-"`
	IsForSale          bool      `json:"-"`
	SellerOrganization *string   `json:"seller_organization,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// MatchResult pairs a listing with its buyer match score.
type MatchResult struct {
	Listing    *Listing `json:"listing"`
	MatchScore float64  `json:"match_score"`
}

// MatchParams narrows the candidate set before scoring.
type MatchParams struct {
	Categories    []string `json:"categories,omitempty"`
	MinRecords    int      `json:"min_records,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
}

// DefaultMinConfidence filters out poorly normalized datasets unless the
// buyer loosens it.
const DefaultMinConfidence = 0.7

// SearchParams are the marketplace search filters.
type SearchParams struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

// FeeBreakdown itemizes the platform fee for a sale price.
type FeeBreakdown struct {
	SalePrice      float64 `json:"sale_price"`
	Commission     float64 `json:"commission"`
	CommissionRate float64 `json:"commission_rate"`
	SellerPayout   float64 `json:"seller_payout"`
}

// Stats summarizes marketplace inventory.
type Stats struct {
	TotalListings         int     `json:"total_listings"`
	AveragePrice          float64 `json:"average_price"`
	TotalRecordsAvailable int     `json:"total_records_available"`
	CommissionRate        float64 `json:"commission_rate"`
}

// PurchaseRequest asks to buy a listed dataset.
type PurchaseRequest struct {
	DatasetID uuid.UUID `json:"dataset_id"`
}

// PurchaseResult confirms a completed purchase.
type PurchaseResult struct {
	Message    string    `json:"message"`
	DatasetID  uuid.UUID `json:"dataset_id"`
	AmountPaid float64   `json:"amount_paid"`
}

// Validation reports whether a purchase can proceed.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
