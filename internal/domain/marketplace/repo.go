package marketplace

import (
	"context"

	"github.com/google/uuid"
)

type ListingRepository interface {
	// ListForSale returns normalized, for-sale datasets excluding the viewer's own.
	ListForSale(ctx context.Context, excludeOwner uuid.UUID, limit, offset int) ([]*Listing, int, error)
	// GetForSale returns one for-sale dataset by id.
	GetForSale(ctx context.Context, datasetID uuid.UUID) (*Listing, error)
	// FindCandidates returns for-sale datasets passing the hard filters.
	FindCandidates(ctx context.Context, excludeOwner uuid.UUID, params MatchParams) ([]*Listing, error)
	// Search applies text, category, and price filters ordered by confidence.
	Search(ctx context.Context, params SearchParams) ([]*Listing, error)
	// Aggregate returns listing count, average price, and total records for sale.
	Aggregate(ctx context.Context) (*Stats, error)
}
