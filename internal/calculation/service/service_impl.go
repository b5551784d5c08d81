package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/clock"
	"github.com/smallbiznis/exporta/internal/ownerctx"
	"github.com/smallbiznis/exporta/internal/pricing"
	"github.com/smallbiznis/exporta/pkg/db/option"
	"github.com/smallbiznis/exporta/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Monetary roll-up columns keep six decimal places.
const decimalPlaces = 6

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("calculation.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Preview(_ context.Context, input pricing.CalculationInput) pricing.CalculationResults {
	return pricing.Calculate(input)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	status := domain.StatusDraft
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		status = *req.Status
	}

	results := pricing.Calculate(req.Input)

	now := s.clock.Now()
	rec := &domain.CalculationRecord{
		ID:          s.genID.Generate().Int64(),
		OwnerUserID: ownerID.Int64(),
		Container:   strings.TrimSpace(req.Container),
		Destination: strings.TrimSpace(req.Destination),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := fillDerived(rec, req.Input, results); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, s.db, rec); err != nil {
		return nil, err
	}

	s.log.Info("calculation record created",
		zap.Int64("record_id", rec.ID),
		zap.String("status", string(rec.Status)),
	)

	return toResponse(rec)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	recordID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(rec)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	recordID, err := parseID(req.ID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}

	if req.Container != nil {
		rec.Container = strings.TrimSpace(*req.Container)
	}
	if req.Destination != nil {
		rec.Destination = strings.TrimSpace(*req.Destination)
	}
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		rec.Status = *req.Status
	}
	if req.Input != nil {
		// A changed input invalidates the stored breakdown, so the engine
		// runs again and the record keeps input and results in lockstep.
		results := pricing.Calculate(*req.Input)
		if err := fillDerived(rec, *req.Input, results); err != nil {
			return nil, err
		}
	}

	rec.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rec); err != nil {
		return nil, err
	}

	return toResponse(rec)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	recordID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return err
	}
	if rec == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, recordID)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	page := req.Pagination.Normalize()

	status := domain.Status(strings.TrimSpace(req.Status))
	if status != "" && !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	filter := domain.ListFilter{
		Status: status,
		Search: strings.TrimSpace(req.Query),
		SortExpr: option.WithQuerySortBy(req.SortBy, req.OrderBy, map[string]bool{
			"created_at":  true,
			"updated_at":  true,
			"destination": true,
			"status":      true,
		}),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{
		Items:    make([]domain.Response, 0, len(items)),
		PageInfo: pagination.BuildPageInfo(page, total),
	}
	for i := range items {
		item, err := toResponse(&items[i])
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, *item)
	}
	return resp, nil
}

func fillDerived(rec *domain.CalculationRecord, input pricing.CalculationInput, results pricing.CalculationResults) error {
	products, err := json.Marshal(input.Products)
	if err != nil {
		return err
	}
	rawInput, err := json.Marshal(input)
	if err != nil {
		return err
	}
	rawResults, err := json.Marshal(results)
	if err != nil {
		return err
	}

	rec.Products = datatypes.JSON(products)
	rec.Input = datatypes.JSON(rawInput)
	rec.Results = datatypes.JSON(rawResults)
	rec.TotalProcurementCost = toDecimal(results.TotalProcurementCost)
	rec.InvoiceValue = toDecimal(results.InvoiceValue)
	rec.RetailerPrice = toDecimal(results.RetailerPrice)
	rec.WeightedMargin = toDecimal(results.WeightedMargin)
	return nil
}

func toResponse(rec *domain.CalculationRecord) (*domain.Response, error) {
	var input pricing.CalculationInput
	if len(rec.Input) > 0 {
		if err := json.Unmarshal(rec.Input, &input); err != nil {
			return nil, err
		}
	}
	var results pricing.CalculationResults
	if len(rec.Results) > 0 {
		if err := json.Unmarshal(rec.Results, &results); err != nil {
			return nil, err
		}
	}

	return &domain.Response{
		ID:          snowflake.ID(rec.ID).String(),
		OwnerUserID: snowflake.ID(rec.OwnerUserID).String(),
		Container:   rec.Container,
		Destination: rec.Destination,
		Status:      rec.Status,
		Input:       input,
		Results:     results,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

func toDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(decimalPlaces)
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return id.Int64(), nil
}
