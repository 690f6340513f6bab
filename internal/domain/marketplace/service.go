package marketplace

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mist/datasteward/internal/domain/billing"
	"github.com/mist/datasteward/internal/domain/dataset"
	"github.com/mist/datasteward/internal/domain/identity"
	"github.com/mist/datasteward/internal/platform/db"
)

var ErrListingNotFound = fmt.Errorf("dataset not found or not for sale")

// PurchaseError carries the validation failures blocking a purchase.
type PurchaseError struct {
	Errors []string
}

func (e *PurchaseError) Error() string {
	return "purchase rejected: " + strings.Join(e.Errors, "; ")
}

type Service struct {
	listings       ListingRepository
	records        billing.RecordRepository
	users          identity.UserRepository
	pool           *pgxpool.Pool
	commissionRate float64
}

func NewService(listings ListingRepository, records billing.RecordRepository, users identity.UserRepository, pool *pgxpool.Pool, commissionRate float64) *Service {
	return &Service{
		listings:       listings,
		records:        records,
		users:          users,
		pool:           pool,
		commissionRate: commissionRate,
	}
}

func (s *Service) ListListings(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*Listing, int, error) {
	return s.listings.ListForSale(ctx, viewerID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*Listing, error) {
	return s.listings.Search(ctx, params)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.listings.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	stats.CommissionRate = s.commissionRate
	return stats, nil
}

// Fees itemizes the platform commission for a sale price.
func (s *Service) Fees(salePrice float64) *FeeBreakdown {
	commission := salePrice * s.commissionRate
	return &FeeBreakdown{
		SalePrice:      salePrice,
		Commission:     commission,
		CommissionRate: s.commissionRate,
		SellerPayout:   salePrice - commission,
	}
}

// Matches scores the for-sale datasets against a buyer's criteria and
// interests, best first. Zero-score listings are dropped.
func (s *Service) Matches(ctx context.Context, buyer *identity.User, params MatchParams) ([]*MatchResult, error) {
	if params.MinConfidence == 0 {
		params.MinConfidence = DefaultMinConfidence
	}

	candidates, err := s.listings.FindCandidates(ctx, buyer.ID, params)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}

	var results []*MatchResult
	for _, l := range candidates {
		score := matchScore(buyer, l, params.Categories)
		if score > 0 {
			results = append(results, &MatchResult{Listing: l, MatchScore: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results, nil
}

// Recommend returns the buyer's top matches, inferring categories from their
// stated research interests.
func (s *Service) Recommend(ctx context.Context, buyer *identity.User, limit int) ([]*MatchResult, error) {
	var categories []string
	if buyer.ResearchInterests != nil {
		words := strings.Fields(strings.ToLower(*buyer.ResearchInterests))
		wordSet := make(map[string]bool, len(words))
		for _, w := range words {
			wordSet[w] = true
		}
		for _, cat := range []string{"vitals", "labs", "medications", "diagnoses", "procedures"} {
			if wordSet[cat] {
				categories = append(categories, cat)
			}
		}
	}

	results, err := s.Matches(ctx, buyer, MatchParams{Categories: categories})
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// matchScore weighs data quality (0.3), category overlap (0.4), research
// interest keyword hits (0.2), and record volume normalized to 10k (0.1),
// capped at 1.0.
func matchScore(buyer *identity.User, l *Listing, requestedCategories []string) float64 {
	score := 0.0

	if l.ConfidenceScore != nil {
		score += *l.ConfidenceScore * 0.3
	}

	if len(requestedCategories) > 0 && len(l.DataCategories) > 0 {
		have := make(map[string]bool, len(l.DataCategories))
		for _, c := range l.DataCategories {
			have[c] = true
		}
		matching := 0
		for _, c := range requestedCategories {
			if have[c] {
				matching++
			}
		}
		score += float64(matching) / float64(len(requestedCategories)) * 0.4
	}

	if buyer.ResearchInterests != nil && l.Description != nil {
		keywords := strings.Fields(strings.ToLower(*buyer.ResearchInterests))
		if len(keywords) > 0 {
			desc := strings.ToLower(*l.Description)
			hits := 0
			for _, kw := range keywords {
				if strings.Contains(desc, kw) {
					hits++
				}
			}
			interest := float64(hits) / float64(len(keywords))
			if interest > 1 {
				interest = 1
			}
			score += interest * 0.2
		}
	}

	if l.TotalRecords > 0 {
		volume := float64(l.TotalRecords) / 10000
		if volume > 1 {
			volume = 1
		}
		score += volume * 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

// ValidatePurchase lists every reason a purchase cannot proceed.
func (s *Service) ValidatePurchase(buyer *identity.User, l *Listing) *Validation {
	var errs []string
	if !l.IsForSale {
		errs = append(errs, "Dataset is not for sale")
	}
	if l.OwnerID == buyer.ID {
		errs = append(errs, "Cannot purchase your own dataset")
	}
	if l.Status != dataset.StatusNormalized {
		errs = append(errs, "Dataset is not ready for sale")
	}
	if l.Price == nil || *l.Price <= 0 {
		errs = append(errs, "Invalid dataset price")
	}
	return &Validation{Valid: len(errs) == 0, Errors: errs}
}

// Validate loads the listing and reports whether buyer can purchase it.
func (s *Service) Validate(ctx context.Context, buyer *identity.User, datasetID uuid.UUID) (*Validation, error) {
	l, err := s.listings.GetForSale(ctx, datasetID)
	if err != nil {
		return nil, ErrListingNotFound
	}
	return s.ValidatePurchase(buyer, l), nil
}

// Purchase executes a marketplace sale: three ledger entries (buyer purchase,
// seller sale net of commission, platform commission) plus balance updates,
// all in one transaction.
func (s *Service) Purchase(ctx context.Context, buyer *identity.User, datasetID uuid.UUID) (*PurchaseResult, error) {
	l, err := s.listings.GetForSale(ctx, datasetID)
	if err != nil {
		return nil, ErrListingNotFound
	}
	if v := s.ValidatePurchase(buyer, l); !v.Valid {
		return nil, &PurchaseError{Errors: v.Errors}
	}

	price := *l.Price
	fees := s.Fees(price)
	sellerID := l.OwnerID

	run := func(ctx context.Context) error {
		entries := []*billing.Record{
			{
				UserID:          buyer.ID,
				TransactionType: billing.TypePurchase,
				Amount:          price,
				BuyerID:         &buyer.ID,
				SellerID:        &sellerID,
				DatasetID:       &l.DatasetID,
				Description:     fmt.Sprintf("Purchased dataset: %s", l.FileName),
			},
			{
				UserID:           sellerID,
				TransactionType:  billing.TypeSale,
				Amount:           fees.SellerPayout,
				BuyerID:          &buyer.ID,
				SellerID:         &sellerID,
				DatasetID:        &l.DatasetID,
				CommissionAmount: &fees.Commission,
				Description:      fmt.Sprintf("Sold dataset: %s", l.FileName),
			},
			{
				UserID:          sellerID,
				TransactionType: billing.TypeCommission,
				Amount:          fees.Commission,
				BuyerID:         &buyer.ID,
				SellerID:        &sellerID,
				DatasetID:       &l.DatasetID,
				Description:     fmt.Sprintf("Platform commission for: %s", l.FileName),
			},
		}
		for _, rec := range entries {
			if err := s.records.Create(ctx, rec); err != nil {
				return fmt.Errorf("recording %s: %w", rec.TransactionType, err)
			}
		}
		if err := s.users.AddBalances(ctx, buyer.ID, 0, price); err != nil {
			return fmt.Errorf("updating buyer balance: %w", err)
		}
		if err := s.users.AddBalances(ctx, sellerID, fees.SellerPayout, 0); err != nil {
			return fmt.Errorf("updating seller balance: %w", err)
		}
		return nil
	}

	if s.pool != nil {
		err = db.RunInTx(ctx, s.pool, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}

	return &PurchaseResult{
		Message:    "Purchase successful",
		DatasetID:  l.DatasetID,
		AmountPaid: price,
	}, nil
}
