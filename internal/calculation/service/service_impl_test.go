package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/calculation/repository"
	"github.com/smallbiznis/exporta/internal/clock"
	"github.com/smallbiznis/exporta/internal/ownerctx"
	"github.com/smallbiznis/exporta/internal/pricing"
	"github.com/smallbiznis/exporta/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:calcsvc%d?mode=memory&cache=shared", testDBSeq)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := conn.AutoMigrate(&domain.CalculationRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake
}

func ownerContext(t *testing.T) context.Context {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return ownerctx.WithOwnerID(context.Background(), node.Generate().Int64())
}

func sampleInput() pricing.CalculationInput {
	return pricing.CalculationInput{
		Products: []pricing.ProductLine{
			{Name: "Coffee beans", Quantity: 100, UnitPrice: 80, Included: true, Margin: 20},
			{Name: "Cocoa nibs", Quantity: 50, UnitPrice: 40, Included: true, Margin: 10},
		},
		TransportCost:               500,
		PackingCost:                 250,
		FumigationCost:              120,
		CustomsClearanceCost:        180,
		ExportDutyRate:              5,
		FreightCost:                 900,
		ImportDuty:                  300,
		DestinationCustomsClearance: 150,
		DestinationTransport:        200,
		DistributorMargin:           12,
		RetailerMargin:              25,
	}
}

func TestService_CreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext(t)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Container:   "MSKU-441002-7",
		Destination: "Rotterdam",
		Input:       sampleInput(),
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusDraft, created.Status)
	assert.Equal(t, "MSKU-441002-7", created.Container)
	assert.Equal(t, "Rotterdam", created.Destination)
	assert.Len(t, created.Results.ProductBreakdown, 2)
	assert.InDelta(t, 10000, created.Results.RawMaterialsCost, 1e-9)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Results.RetailerPrice, got.Results.RetailerPrice)
	assert.Equal(t, sampleInput(), got.Input)
}

func TestService_CreateRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		Destination: "Hamburg",
		Input:       sampleInput(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestService_CreateRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext(t)

	bad := domain.Status("pending")
	_, err := svc.Create(ctx, domain.CreateRequest{
		Status: &bad,
		Input:  sampleInput(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestService_GetInvalidAndMissingID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext(t)

	_, err := svc.Get(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(ctx, "123456789")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdateRecomputesResults(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := ownerContext(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Destination: "Busan", Input: sampleInput()})
	require.NoError(t, err)

	fake.Advance(2 * time.Hour)

	next := sampleInput()
	next.Products[0].UnitPrice = 160
	completed := domain.StatusCompleted
	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID:     created.ID,
		Status: &completed,
		Input:  &next,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Greater(t, updated.Results.RawMaterialsCost, created.Results.RawMaterialsCost)
	assert.InDelta(t, 18000, updated.Results.RawMaterialsCost, 1e-9)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestService_UpdateMetadataKeepsResults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Destination: "Busan", Input: sampleInput()})
	require.NoError(t, err)

	dest := "Incheon"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Destination: &dest})
	require.NoError(t, err)

	assert.Equal(t, "Incheon", updated.Destination)
	assert.Equal(t, created.Results, updated.Results)
	assert.Equal(t, created.Input, updated.Input)
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Destination: "Dubai", Input: sampleInput()})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), domain.ErrNotFound)
}

func TestService_ListOrderingAndFilters(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := ownerContext(t)

	destinations := []string{"Rotterdam", "Hamburg", "Singapore"}
	ids := make([]string, 0, len(destinations))
	for _, dest := range destinations {
		created, err := svc.Create(ctx, domain.CreateRequest{Destination: dest, Input: sampleInput()})
		require.NoError(t, err)
		ids = append(ids, created.ID)
		fake.Advance(time.Minute)
	}

	completed := domain.StatusCompleted
	_, err := svc.Update(ctx, domain.UpdateRequest{ID: ids[1], Status: &completed})
	require.NoError(t, err)

	// Newest first by default.
	all, err := svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "Singapore", all.Items[0].Destination)
	assert.Equal(t, "Rotterdam", all.Items[2].Destination)
	assert.Equal(t, int64(3), all.PageInfo.TotalCount)

	byStatus, err := svc.List(ctx, domain.ListRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, "Hamburg", byStatus.Items[0].Destination)

	search, err := svc.List(ctx, domain.ListRequest{Query: "SINGA"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "Singapore", search.Items[0].Destination)

	empty, err := svc.List(ctx, domain.ListRequest{Query: "zanzibar"})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, int64(0), empty.PageInfo.TotalCount)

	_, err = svc.List(ctx, domain.ListRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestService_ListPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext(t)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, domain.CreateRequest{
			Destination: fmt.Sprintf("Port %d", i),
			Input:       sampleInput(),
		})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.PageInfo.HasMore)

	last, err := svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{Page: 3, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.PageInfo.HasMore)
}
