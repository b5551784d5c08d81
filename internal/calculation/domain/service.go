package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/exporta/internal/pricing"
	"github.com/smallbiznis/exporta/pkg/db/pagination"
)

type Service interface {
	// Preview runs the engine without persisting anything.
	Preview(ctx context.Context, input pricing.CalculationInput) pricing.CalculationResults

	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type CreateRequest struct {
	Container   string                   `json:"container_number"`
	Destination string                   `json:"destination"`
	Status      *Status                  `json:"status"`
	Input       pricing.CalculationInput `json:"input"`
}

type UpdateRequest struct {
	ID          string
	Container   *string                   `json:"container_number"`
	Destination *string                   `json:"destination"`
	Status      *Status                   `json:"status"`
	Input       *pricing.CalculationInput `json:"input"`
}

type ListRequest struct {
	Status  string
	Query   string
	SortBy  string
	OrderBy string

	Pagination pagination.Pagination
}

type Response struct {
	ID          string                     `json:"id"`
	OwnerUserID string                     `json:"owner_user_id"`
	Container   string                     `json:"container_number"`
	Destination string                     `json:"destination"`
	Status      Status                     `json:"status"`
	Input       pricing.CalculationInput   `json:"input"`
	Results     pricing.CalculationResults `json:"results"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrNotFound      = errors.New("not_found")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidStatus = errors.New("invalid_status")
)
