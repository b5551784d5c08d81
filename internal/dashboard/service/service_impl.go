package service

import (
	"context"

	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/config"
	"github.com/smallbiznis/exporta/internal/dashboard/domain"
	"github.com/smallbiznis/exporta/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Report  *config.ReportConfigHolder
	Records calculationdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	report  *config.ReportConfigHolder
	records calculationdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("dashboard.service"),
		report:  p.Report,
		records: p.Records,
	}
}

func (s *Service) Summary(ctx context.Context) (*domain.Summary, error) {
	cfg := s.report.Get()

	summary := &domain.Summary{
		LowMarginThreshold: cfg.LowMarginThreshold,
		ByStatus:           make([]domain.StatusCount, 0, 3),
		TopDestinations:    make([]domain.DestinationCount, 0, cfg.TopDestinations),
	}

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&calculationdomain.CalculationRecord{})
	}

	if err := base().Count(&summary.TotalRecords).Error; err != nil {
		return nil, err
	}

	if err := base().
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&summary.ByStatus).Error; err != nil {
		return nil, err
	}

	var totals struct {
		TotalInvoiceValue  float64
		TotalRetailerPrice float64
		AvgWeightedMargin  float64
	}
	if err := base().
		Select("COALESCE(SUM(invoice_value), 0) AS total_invoice_value, COALESCE(SUM(retailer_price), 0) AS total_retailer_price, COALESCE(AVG(weighted_margin), 0) AS avg_weighted_margin").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	summary.TotalInvoiceValue = totals.TotalInvoiceValue
	summary.TotalRetailerPrice = totals.TotalRetailerPrice
	summary.AvgWeightedMargin = totals.AvgWeightedMargin

	if err := base().
		Where("weighted_margin < ?", cfg.LowMarginThreshold).
		Count(&summary.LowMarginCount).Error; err != nil {
		return nil, err
	}

	if err := base().
		Select("destination, COUNT(*) AS count").
		Where("destination <> ''").
		Group("destination").
		Order("count DESC, destination ASC").
		Limit(cfg.TopDestinations).
		Scan(&summary.TopDestinations).Error; err != nil {
		return nil, err
	}

	recent, err := s.records.List(ctx, calculationdomain.ListRequest{
		Pagination: paginationFor(cfg.RecentRecords),
	})
	if err != nil {
		return nil, err
	}
	summary.RecentRecords = recent.Items

	return summary, nil
}

func paginationFor(size int) pagination.Pagination {
	return pagination.Pagination{Page: 1, PageSize: size}
}
