package admin

import "github.com/mist/datasteward/internal/domain/dataset"

// PlatformStats is the platform-wide operational snapshot for administrators.
type PlatformStats struct {
	TotalUsers        int     `json:"total_users"`
	TotalDatasets     int     `json:"total_datasets"`
	TotalTransactions int     `json:"total_transactions"`
	TotalRevenue      float64 `json:"total_revenue"`
	ActiveListings    int     `json:"active_listings"`
}

// DashboardStats summarizes one user's holdings and earnings.
type DashboardStats struct {
	TotalDatasets      int                `json:"total_datasets"`
	NormalizedDatasets int                `json:"normalized_datasets"`
	TotalRecords       int                `json:"total_records"`
	TotalEarnings      float64            `json:"total_earnings"`
	RecentUploads      []*dataset.Dataset `json:"recent_uploads"`
}
