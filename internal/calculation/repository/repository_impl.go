package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, record *domain.CalculationRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.CalculationRecord, error) {
	var rec domain.CalculationRecord
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CalculationRecord, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.CalculationRecord{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		stmt = stmt.Where("LOWER(container_number) LIKE ? OR LOWER(destination) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortExpr := filter.SortExpr
	if strings.TrimSpace(sortExpr) == "" {
		// Snowflake IDs are time-ordered, so this is most-recent-first.
		sortExpr = "id DESC"
	}
	stmt = option.WithSortBy(sortExpr).Apply(stmt)
	stmt = option.WithLimit(filter.Limit).Apply(stmt)
	stmt = option.WithOffset(filter.Offset).Apply(stmt)

	var items []domain.CalculationRecord
	if err := stmt.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.CalculationRecord) error {
	if record == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(record).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.CalculationRecord{}).Error
}
