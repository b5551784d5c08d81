package domain

import (
	"context"

	"gorm.io/gorm"
)

// ListFilter narrows a record listing. Search matches container number and
// destination case-insensitively as a substring.
type ListFilter struct {
	Status   Status
	Search   string
	SortExpr string
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, record *CalculationRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*CalculationRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CalculationRecord, int64, error)
	Update(ctx context.Context, db *gorm.DB, record *CalculationRecord) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}
