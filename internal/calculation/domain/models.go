package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status is the lifecycle tag of a stored calculation.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// ValidStatus reports whether the tag is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// CalculationRecord persists one pricing request together with the breakdown
// the engine produced for it. The full input and results travel as JSON
// documents; the monetary roll-up columns are stored as decimals so reports
// can aggregate in SQL without floating-point drift.
type CalculationRecord struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	OwnerUserID int64  `json:"owner_user_id" gorm:"column:owner_user_id;not null;index"`
	Container   string `json:"container_number" gorm:"column:container_number;type:text"`
	Destination string `json:"destination" gorm:"type:text"`
	Status      Status `json:"status" gorm:"type:text;not null;default:'draft';index"`

	Products datatypes.JSON `json:"products" gorm:"type:jsonb"`
	Input    datatypes.JSON `json:"input" gorm:"type:jsonb"`
	Results  datatypes.JSON `json:"results" gorm:"type:jsonb"`

	TotalProcurementCost decimal.Decimal `json:"total_procurement_cost" gorm:"type:numeric"`
	InvoiceValue         decimal.Decimal `json:"invoice_value" gorm:"type:numeric"`
	RetailerPrice        decimal.Decimal `json:"retailer_price" gorm:"type:numeric"`
	WeightedMargin       decimal.Decimal `json:"weighted_margin" gorm:"type:numeric"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CalculationRecord) TableName() string { return "calculation_records" }
