package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
	calculationrepository "github.com/smallbiznis/exporta/internal/calculation/repository"
	calculationservice "github.com/smallbiznis/exporta/internal/calculation/service"
	"github.com/smallbiznis/exporta/internal/clock"
	"github.com/smallbiznis/exporta/internal/config"
	dashboardservice "github.com/smallbiznis/exporta/internal/dashboard/service"
	"github.com/smallbiznis/exporta/internal/providers/pdf"
	"github.com/smallbiznis/exporta/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var serverTestSeq int

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverTestSeq++
	dsn := fmt.Sprintf("file:server%d?mode=memory&cache=shared", serverTestSeq)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&seed.User{}, &calculationdomain.CalculationRecord{}))

	cfg := config.Config{DefaultOwnerID: 0}
	require.NoError(t, seed.EnsureDefaultOwner(conn, cfg.DefaultOwnerID))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	log := zap.NewNop()
	records := calculationservice.New(calculationservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  calculationrepository.Provide(),
	})
	dashboards := dashboardservice.New(dashboardservice.Params{
		DB:      conn,
		Log:     log,
		Report:  config.NewStaticReportConfigHolder(config.DefaultReportConfig()),
		Records: records,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:            engine,
		Cfg:            cfg,
		DB:             conn,
		GenID:          node,
		Clock:          fakeClock,
		CalculationSvc: records,
		DashboardSvc:   dashboards,
		PDFProvider:    pdf.New(),
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func previewPayload() map[string]any {
	return map[string]any{
		"products": []map[string]any{
			{"name": "Coffee beans", "quantity": 10, "unitPrice": 100, "included": true, "margin": 15},
		},
		"transportCost":  200,
		"exportDutyRate": 5,
		"freightCost":    300,
	}
}

func TestPreviewCalculation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/calculations/preview", previewPayload())
	require.Equal(t, http.StatusOK, rec.Code)

	var results struct {
		RawMaterialsCost     float64 `json:"rawMaterialsCost"`
		TotalProcurementCost float64 `json:"totalProcurementCost"`
		InvoiceValue         float64 `json:"invoiceValue"`
	}
	decodeData(t, rec, &results)
	assert.InDelta(t, 1000, results.RawMaterialsCost, 1e-9)
	assert.InDelta(t, 1200, results.TotalProcurementCost, 1e-9)
}

func TestPreviewCalculation_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	payload := map[string]any{
		"products": []map[string]any{
			{"name": "Coffee beans", "quantity": 5, "unitPrice": 10, "included": true},
			{"name": "coffee beans", "quantity": 5, "unitPrice": 10, "included": true},
			{"name": "", "quantity": -1, "unitPrice": 10, "included": true},
		},
		"transportCost": -50,
	}
	rec := doJSON(t, s, http.MethodPost, "/api/calculations/preview", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Type   string            `json:"type"`
			Errors []ValidationError `json:"errors"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "validation_error", envelope.Error.Type)

	fields := make(map[string]string)
	for _, e := range envelope.Error.Errors {
		fields[e.Field] = e.Code
	}
	assert.Equal(t, "negative_value", fields["transportCost"])
	assert.Equal(t, "duplicate_name", fields["products[1].name"])
	assert.Equal(t, "required", fields["products[2].name"])
	assert.Equal(t, "negative_value", fields["products[2].quantity"])
}

func TestCalculationCRUDFlow(t *testing.T) {
	s := newTestServer(t)

	createBody := map[string]any{
		"container_number": "TCNU-880210-3",
		"destination":      "Rotterdam",
		"input":            previewPayload(),
	}
	created := doJSON(t, s, http.MethodPost, "/api/calculations", createBody)
	require.Equal(t, http.StatusOK, created.Code)

	var record struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		Destination string `json:"destination"`
	}
	decodeData(t, created, &record)
	assert.Equal(t, "draft", record.Status)
	require.NotEmpty(t, record.ID)

	got := doJSON(t, s, http.MethodGet, "/api/calculations/"+record.ID, nil)
	require.Equal(t, http.StatusOK, got.Code)

	updated := doJSON(t, s, http.MethodPut, "/api/calculations/"+record.ID, map[string]any{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, updated.Code)
	decodeData(t, updated, &record)
	assert.Equal(t, "completed", record.Status)

	list := doJSON(t, s, http.MethodGet, "/api/calculations?status=completed", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var listing struct {
		Items []json.RawMessage `json:"items"`
	}
	decodeData(t, list, &listing)
	assert.Len(t, listing.Items, 1)

	deleted := doJSON(t, s, http.MethodDelete, "/api/calculations/"+record.ID, nil)
	require.Equal(t, http.StatusOK, deleted.Code)

	missing := doJSON(t, s, http.MethodGet, "/api/calculations/"+record.ID, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestGetCalculation_InvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/calculations/abc!", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCalculation_UnknownStatus(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/calculations", map[string]any{
		"status": "pending",
		"input":  previewPayload(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCalculationsCSV(t *testing.T) {
	s := newTestServer(t)

	for _, dest := range []string{"Hamburg", "Busan"} {
		created := doJSON(t, s, http.MethodPost, "/api/calculations", map[string]any{
			"destination": dest,
			"input":       previewPayload(),
		})
		require.Equal(t, http.StatusOK, created.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/calculations/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	reader := csv.NewReader(strings.NewReader(rec.Body.String()))
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	// Header plus, per record, one summary row and one product row.
	require.Len(t, rows, 5)
	assert.Equal(t, csvExportHeader, rows[0])

	types := make(map[string]int)
	for _, row := range rows[1:] {
		types[row[4]]++
	}
	assert.Equal(t, 2, types["record"])
	assert.Equal(t, 2, types["product"])
	assert.Contains(t, rec.Body.String(), "Coffee beans")
	assert.Contains(t, rec.Body.String(), "Busan")
}

func TestExportCalculationsCSV_StatusFilter(t *testing.T) {
	s := newTestServer(t)

	created := doJSON(t, s, http.MethodPost, "/api/calculations", map[string]any{
		"destination": "Hamburg",
		"input":       previewPayload(),
	})
	require.Equal(t, http.StatusOK, created.Code)

	rec := doJSON(t, s, http.MethodGet, "/api/calculations/export.csv?status=completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reader := csv.NewReader(strings.NewReader(rec.Body.String()))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1) // header only, the record is still a draft
}

func TestExportCalculationPDF(t *testing.T) {
	s := newTestServer(t)

	created := doJSON(t, s, http.MethodPost, "/api/calculations", map[string]any{
		"destination": "Hamburg",
		"input":       previewPayload(),
	})
	require.Equal(t, http.StatusOK, created.Code)
	var record struct {
		ID string `json:"id"`
	}
	decodeData(t, created, &record)

	rec := doJSON(t, s, http.MethodGet, "/api/calculations/"+record.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestEstimateDataUsesProvidedTime(t *testing.T) {
	rec := &calculationdomain.Response{ID: "1", Destination: "Hamburg"}
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	data := estimateData(rec, at)
	assert.Equal(t, "2025-05-01T12:00:00Z", data.GeneratedAt)
}

func TestDashboardSummaryEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, dest := range []string{"Rotterdam", "Rotterdam", "Busan"} {
		created := doJSON(t, s, http.MethodPost, "/api/calculations", map[string]any{
			"destination": dest,
			"input":       previewPayload(),
		})
		require.Equal(t, http.StatusOK, created.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		TotalRecords    int64 `json:"total_records"`
		TopDestinations []struct {
			Destination string `json:"destination"`
			Count       int64  `json:"count"`
		} `json:"top_destinations"`
	}
	decodeData(t, rec, &summary)
	assert.Equal(t, int64(3), summary.TotalRecords)
	require.NotEmpty(t, summary.TopDestinations)
	assert.Equal(t, "Rotterdam", summary.TopDestinations[0].Destination)
}

func TestOwnerContext_BadHeader(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/calculations", nil)
	req.Header.Set("X-User-Id", "not-an-id")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
