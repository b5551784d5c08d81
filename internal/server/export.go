package server

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/providers/pdf"
	"github.com/smallbiznis/exporta/pkg/db/pagination"
)

func (s *Server) ExportCalculationPDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	rec, err := s.calculationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateEstimate(c.Request.Context(), estimateData(rec, s.clock.Now()))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if reader == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordExport(c.Request.Context(), "pdf")
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "estimate-"+rec.ID+".pdf"))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

var csvExportHeader = []string{
	"record_id", "container_number", "destination", "status", "row_type",
	"product", "quantity", "unit_cost",
	"invoice_value", "distributor_price", "retailer_price",
}

// ExportCalculationsCSV streams the owner's records as CSV. Each record
// produces a summary row followed by one row per product in its breakdown.
func (s *Server) ExportCalculationsCSV(c *gin.Context) {
	var req struct {
		Status string `form:"status"`
		Query  string `form:"q"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, err)
		return
	}

	page := pagination.Pagination{Page: 1, PageSize: 250}
	resp, err := s.calculationSvc.List(c.Request.Context(), calculationdomain.ListRequest{
		Status:     req.Status,
		Query:      req.Query,
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "calculations.csv"))
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(csvExportHeader); err != nil {
		return
	}

	for {
		for i := range resp.Items {
			if err := writeCalculationRows(w, &resp.Items[i]); err != nil {
				return
			}
		}
		if len(resp.Items) < page.PageSize {
			break
		}
		page.Page++
		resp, err = s.calculationSvc.List(c.Request.Context(), calculationdomain.ListRequest{
			Status:     req.Status,
			Query:      req.Query,
			Pagination: page,
		})
		if err != nil {
			// Headers are already out; stop the stream.
			return
		}
	}
	w.Flush()

	if s.obsMetrics != nil {
		s.obsMetrics.RecordExport(c.Request.Context(), "csv")
	}
}

func writeCalculationRows(w *csv.Writer, rec *calculationdomain.Response) error {
	res := rec.Results
	if err := w.Write([]string{
		rec.ID, rec.Container, rec.Destination, string(rec.Status), "record",
		"", "", "",
		formatAmount(res.InvoiceValue),
		formatAmount(res.DistributorPrice),
		formatAmount(res.RetailerPrice),
	}); err != nil {
		return err
	}
	for _, p := range res.ProductBreakdown {
		if err := w.Write([]string{
			rec.ID, rec.Container, rec.Destination, string(rec.Status), "product",
			p.Name,
			formatAmount(p.Quantity),
			formatAmount(p.UnitCost),
			formatAmount(p.InvoicePrice),
			formatAmount(p.DistributorPrice),
			formatAmount(p.RetailerPrice),
		}); err != nil {
			return err
		}
	}
	return nil
}

func estimateData(rec *calculationdomain.Response, generatedAt time.Time) pdf.EstimateData {
	res := rec.Results
	data := pdf.EstimateData{
		RecordID:    rec.ID,
		Container:   rec.Container,
		Destination: rec.Destination,
		Status:      string(rec.Status),
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		CostLines: []pdf.EstimateCostLine{
			{Label: "Raw materials", Amount: formatAmount(res.RawMaterialsCost)},
			{Label: "Transport to port", Amount: formatAmount(res.TransportCost)},
			{Label: "Packing", Amount: formatAmount(res.PackingCost)},
			{Label: "Other procurement costs", Amount: formatAmount(res.OtherProcurementCosts)},
			{Label: "Total procurement", Amount: formatAmount(res.TotalProcurementCost)},
			{Label: "Margin", Amount: formatAmount(res.MarginAmount)},
			{Label: "Export duty", Amount: formatAmount(res.ExportDutyAmount)},
			{Label: "Freight", Amount: formatAmount(res.FreightCost)},
			{Label: "Import duty", Amount: formatAmount(res.ImportDuty)},
			{Label: "Other logistics costs", Amount: formatAmount(res.OtherLogisticsCosts)},
			{Label: "Total logistics", Amount: formatAmount(res.TotalLogisticsCost)},
		},
		InvoiceValue:     formatAmount(res.InvoiceValue),
		ImporterCost:     formatAmount(res.ImporterTotalCost),
		DistributorPrice: formatAmount(res.DistributorPrice),
		RetailerPrice:    formatAmount(res.RetailerPrice),
	}
	for _, p := range res.ProductBreakdown {
		data.Products = append(data.Products, pdf.EstimateProduct{
			Name:             p.Name,
			Qty:              formatAmount(p.Quantity),
			UnitCost:         formatAmount(p.UnitCost),
			InvoicePrice:     formatAmount(p.InvoicePrice),
			DistributorPrice: formatAmount(p.DistributorPrice),
			RetailerPrice:    formatAmount(p.RetailerPrice),
		})
	}
	return data
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
