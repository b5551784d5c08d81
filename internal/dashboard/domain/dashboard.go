package domain

import (
	"context"

	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
)

// StatusCount is one slice of the records-by-status breakdown.
type StatusCount struct {
	Status calculationdomain.Status `json:"status"`
	Count  int64                    `json:"count"`
}

// DestinationCount ranks destinations by how many records target them.
type DestinationCount struct {
	Destination string `json:"destination"`
	Count       int64  `json:"count"`
}

// Summary is the aggregate view rendered on the dashboard landing page.
type Summary struct {
	TotalRecords       int64                        `json:"total_records"`
	ByStatus           []StatusCount                `json:"by_status"`
	TotalInvoiceValue  float64                      `json:"total_invoice_value"`
	TotalRetailerPrice float64                      `json:"total_retailer_price"`
	AvgWeightedMargin  float64                      `json:"avg_weighted_margin"`
	LowMarginCount     int64                        `json:"low_margin_count"`
	LowMarginThreshold float64                      `json:"low_margin_threshold"`
	TopDestinations    []DestinationCount           `json:"top_destinations"`
	RecentRecords      []calculationdomain.Response `json:"recent_records"`
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}
