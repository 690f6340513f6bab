package billing

import (
	"time"

	"github.com/google/uuid"
)

// Ledger transaction types.
const (
	TypePurchase   = "purchase"
	TypeSale       = "sale"
	TypeCommission = "commission"
)

// Invoice statuses.
const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
	InvoiceFailed  = "failed"
)

// Record maps to the billing_records table: one ledger entry.
type Record struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	TransactionType  string     `db:"transaction_type" json:"transaction_type"`
	Amount           float64    `db:"amount" json:"amount"`
	Currency         string     `db:"currency" json:"currency"`
	BuyerID          *uuid.UUID `db:"buyer_id" json:"buyer_id,omitempty"`
	SellerID         *uuid.UUID `db:"seller_id" json:"seller_id,omitempty"`
	DatasetID        *uuid.UUID `db:"dataset_id" json:"dataset_id,omitempty"`
	CommissionAmount *float64   `db:"commission_amount" json:"commission_amount,omitempty"`
	Description      string     `db:"description" json:"description"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// Invoice maps to the invoices table: one monthly seller invoice.
type Invoice struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	InvoiceNumber string     `db:"invoice_number" json:"invoice_number"`
	Status        string     `db:"status" json:"status"`
	Subtotal      float64    `db:"subtotal" json:"subtotal"`
	Tax           float64    `db:"tax" json:"tax"`
	Total         float64    `db:"total" json:"total"`
	PeriodStart   time.Time  `db:"period_start" json:"period_start"`
	PeriodEnd     time.Time  `db:"period_end" json:"period_end"`
	DueDate       time.Time  `db:"due_date" json:"due_date"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// EarningsSummary aggregates a seller's sale activity.
type EarningsSummary struct {
	TotalEarnings    float64   `json:"total_earnings"`
	TotalSales       int       `json:"total_sales"`
	AverageSalePrice float64   `json:"average_sale_price"`
	RecentSales      []*Record `json:"recent_sales"`
}
