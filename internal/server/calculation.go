package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/pricing"
	"github.com/smallbiznis/exporta/pkg/db/pagination"
)

func (s *Server) PreviewCalculation(c *gin.Context) {
	var input pricing.CalculationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if vErr := validateCalculationInput(input); vErr != nil {
		AbortWithError(c, vErr)
		return
	}

	results := s.calculationSvc.Preview(c.Request.Context(), input)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCalculation(c.Request.Context(), "preview")
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

type createCalculationRequest struct {
	Container   string                   `json:"container_number"`
	Destination string                   `json:"destination"`
	Status      *string                  `json:"status"`
	Input       pricing.CalculationInput `json:"input"`
}

func (s *Server) CreateCalculation(c *gin.Context) {
	var req createCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if vErr := validateCalculationInput(req.Input); vErr != nil {
		AbortWithError(c, vErr)
		return
	}

	var status *calculationdomain.Status
	if req.Status != nil {
		st := calculationdomain.Status(strings.TrimSpace(*req.Status))
		status = &st
	}

	resp, err := s.calculationSvc.Create(c.Request.Context(), calculationdomain.CreateRequest{
		Container:   strings.TrimSpace(req.Container),
		Destination: strings.TrimSpace(req.Destination),
		Status:      status,
		Input:       req.Input,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCalculation(c.Request.Context(), "create")
		s.obsMetrics.RecordRecordOp(c.Request.Context(), "create")
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCalculationByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.calculationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCalculationRequest struct {
	Container   *string                   `json:"container_number"`
	Destination *string                   `json:"destination"`
	Status      *string                   `json:"status"`
	Input       *pricing.CalculationInput `json:"input"`
}

func (s *Server) UpdateCalculation(c *gin.Context) {
	var req updateCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if req.Input != nil {
		if vErr := validateCalculationInput(*req.Input); vErr != nil {
			AbortWithError(c, vErr)
			return
		}
	}

	var status *calculationdomain.Status
	if req.Status != nil {
		st := calculationdomain.Status(strings.TrimSpace(*req.Status))
		status = &st
	}

	resp, err := s.calculationSvc.Update(c.Request.Context(), calculationdomain.UpdateRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		Container:   req.Container,
		Destination: req.Destination,
		Status:      status,
		Input:       req.Input,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		if req.Input != nil {
			s.obsMetrics.RecordCalculation(c.Request.Context(), "update")
		}
		s.obsMetrics.RecordRecordOp(c.Request.Context(), "update")
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCalculation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.calculationSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordRecordOp(c.Request.Context(), "delete")
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListCalculations(c *gin.Context) {
	var query struct {
		Status  string `form:"status"`
		Q       string `form:"q"`
		SortBy  string `form:"sort_by"`
		OrderBy string `form:"order_by"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.calculationSvc.List(c.Request.Context(), calculationdomain.ListRequest{
		Status:     strings.TrimSpace(query.Status),
		Query:      strings.TrimSpace(query.Q),
		SortBy:     strings.TrimSpace(query.SortBy),
		OrderBy:    strings.TrimSpace(query.OrderBy),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// validateCalculationInput gathers every field problem in one pass so a
// client can fix the whole form in a single round trip.
func validateCalculationInput(input pricing.CalculationInput) *ValidationErrors {
	var errs []ValidationError

	nonNegative := []struct {
		field string
		value float64
	}{
		{"transportCost", input.TransportCost},
		{"packingCost", input.PackingCost},
		{"fumigationCost", input.FumigationCost},
		{"customsClearanceCost", input.CustomsClearanceCost},
		{"exportDutyRate", input.ExportDutyRate},
		{"freightCost", input.FreightCost},
		{"importDuty", input.ImportDuty},
		{"destinationCustomsClearance", input.DestinationCustomsClearance},
		{"destinationTransport", input.DestinationTransport},
		{"distributorMargin", input.DistributorMargin},
		{"retailerMargin", input.RetailerMargin},
	}
	for _, check := range nonNegative {
		if check.value < 0 {
			errs = append(errs, ValidationError{
				Field:   check.field,
				Code:    "negative_value",
				Message: fmt.Sprintf("%s must not be negative", check.field),
			})
		}
	}

	seen := make(map[string]bool, len(input.Products))
	for i, line := range input.Products {
		prefix := fmt.Sprintf("products[%d]", i)
		name := strings.TrimSpace(line.Name)
		if name == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Code:    "required",
				Message: "product name is required",
			})
		} else if seen[strings.ToLower(name)] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Code:    "duplicate_name",
				Message: fmt.Sprintf("duplicate product name %q", name),
			})
		} else {
			seen[strings.ToLower(name)] = true
		}

		if line.Quantity < 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".quantity",
				Code:    "negative_value",
				Message: "quantity must not be negative",
			})
		}
		if line.UnitPrice < 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".unitPrice",
				Code:    "negative_value",
				Message: "unit price must not be negative",
			})
		}
		if line.Margin < 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".margin",
				Code:    "negative_value",
				Message: "margin must not be negative",
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationErrors{Errors: errs}
}
