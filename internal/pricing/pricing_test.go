package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_SingleProduct(t *testing.T) {
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "Robusta Coffee", Quantity: 10, UnitPrice: 100, Margin: 15, Included: true},
		},
	}

	res := Calculate(input)

	assert.Equal(t, 1000.0, res.RawMaterialsCost)
	assert.Equal(t, 1000.0, res.TotalProcurementCost)
	assert.Equal(t, 15.0, res.WeightedMargin)
	assert.Equal(t, 150.0, res.MarginAmount)
	assert.Equal(t, 1150.0, res.InvoiceValue)
	assert.Equal(t, 1150.0, res.ImporterTotalCost)
	assert.Equal(t, 1150.0, res.DistributorPrice)
	assert.Equal(t, 1150.0, res.RetailerPrice)

	require.Len(t, res.ProductBreakdown, 1)
	assert.Equal(t, 115.0, res.ProductBreakdown[0].InvoicePrice)
	assert.Equal(t, 100.0, res.ProductBreakdown[0].UnitCost)
	assert.Equal(t, 15.0, res.ProductBreakdown[0].Margin)
}

func TestCalculate_EqualValueShares(t *testing.T) {
	// Two lines each worth 1000: the weighted margin is the plain average of
	// the line margins, no matter which line carries the higher one.
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "A", Quantity: 10, UnitPrice: 100, Margin: 10, Included: true},
			{Name: "B", Quantity: 20, UnitPrice: 50, Margin: 20, Included: true},
		},
	}

	res := Calculate(input)
	assert.Equal(t, 2000.0, res.RawMaterialsCost)
	assert.InDelta(t, 15.0, res.WeightedMargin, 1e-9)

	swapped := CalculationInput{
		Products: []ProductLine{
			{Name: "A", Quantity: 10, UnitPrice: 100, Margin: 20, Included: true},
			{Name: "B", Quantity: 20, UnitPrice: 50, Margin: 10, Included: true},
		},
	}
	assert.InDelta(t, 15.0, Calculate(swapped).WeightedMargin, 1e-9)
}

func TestCalculate_FullPipeline(t *testing.T) {
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "Cocoa", Quantity: 25, UnitPrice: 400, Margin: 12, Included: true},
		},
		TransportCost:               500,
		PackingCost:                 300,
		FumigationCost:              100,
		CustomsClearanceCost:        150,
		ExportDutyRate:              5,
		FreightCost:                 2000,
		ImportDuty:                  800,
		DestinationCustomsClearance: 250,
		DestinationTransport:        450,
		DistributorMargin:           10,
		RetailerMargin:              20,
	}

	res := Calculate(input)

	assert.Equal(t, 10000.0, res.RawMaterialsCost)
	assert.Equal(t, 250.0, res.OtherProcurementCosts)
	assert.Equal(t, 11050.0, res.TotalProcurementCost)
	assert.InDelta(t, 12.0, res.WeightedMargin, 1e-9)
	assert.InDelta(t, 1326.0, res.MarginAmount, 1e-9)
	assert.InDelta(t, 12376.0, res.PreDutyInvoiceValue, 1e-9)
	assert.InDelta(t, 618.8, res.ExportDutyAmount, 1e-9)
	assert.InDelta(t, 12994.8, res.InvoiceValue, 1e-9)
	assert.Equal(t, 700.0, res.OtherLogisticsCosts)
	assert.Equal(t, 3500.0, res.TotalLogisticsCost)
	assert.InDelta(t, 16494.8, res.ImporterTotalCost, 1e-9)
	assert.InDelta(t, 18144.28, res.DistributorPrice, 1e-9)
	assert.InDelta(t, 21773.136, res.RetailerPrice, 1e-6)
	assert.InDelta(t, (res.RetailerPrice-11050.0)/11050.0*100, res.TotalMarginPercentage, 1e-9)
}

func TestCalculate_InvoiceValueClosedForm(t *testing.T) {
	// invoiceValue == totalProcurementCost * (1 + wm/100) * (1 + duty/100)
	inputs := []CalculationInput{
		{
			Products: []ProductLine{
				{Name: "A", Quantity: 3, UnitPrice: 7.5, Margin: 13.7, Included: true},
				{Name: "B", Quantity: 11, UnitPrice: 0.25, Margin: 240, Included: true},
			},
			TransportCost:        12.5,
			PackingCost:          3,
			FumigationCost:       0.75,
			CustomsClearanceCost: 9,
			ExportDutyRate:       7.25,
		},
		{
			Products:       []ProductLine{{Name: "A", Quantity: 1, UnitPrice: 999.99, Margin: 150, Included: true}},
			ExportDutyRate: 110, // above 100 is legal and must not be clamped
		},
	}

	for _, input := range inputs {
		res := Calculate(input)
		want := res.TotalProcurementCost * (1 + res.WeightedMargin/100) * (1 + input.ExportDutyRate/100)
		assert.InDelta(t, want, res.InvoiceValue, math.Abs(want)*1e-12)
	}
}

func TestCalculate_ExcludedAndZeroQuantityLines(t *testing.T) {
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "kept", Quantity: 5, UnitPrice: 10, Margin: 10, Included: true},
			{Name: "flagged out", Quantity: 100, UnitPrice: 10, Margin: 99, Included: false},
			{Name: "no quantity", Quantity: 0, UnitPrice: 10, Margin: 99, Included: true},
		},
	}

	res := Calculate(input)

	assert.Equal(t, 50.0, res.RawMaterialsCost)
	assert.InDelta(t, 10.0, res.WeightedMargin, 1e-9)
	require.Len(t, res.ProductBreakdown, 1)
	assert.Equal(t, "kept", res.ProductBreakdown[0].Name)
}

func TestCalculate_EmptyProducts(t *testing.T) {
	res := Calculate(CalculationInput{})

	assert.Zero(t, res.RawMaterialsCost)
	assert.Zero(t, res.WeightedMargin)
	assert.Zero(t, res.TotalMarginPercentage)
	assert.Empty(t, res.ProductBreakdown)
}

func TestCalculate_AllLinesExcluded_EchoesFixedCosts(t *testing.T) {
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "A", Quantity: 0, UnitPrice: 50, Margin: 10, Included: true},
			{Name: "B", Quantity: 4, UnitPrice: 50, Margin: 10, Included: false},
		},
		TransportCost:        120,
		PackingCost:          80,
		FumigationCost:       40,
		CustomsClearanceCost: 60,
		FreightCost:          500,
		ImportDuty:           70,
	}

	res := Calculate(input)

	assert.Zero(t, res.RawMaterialsCost)
	assert.Zero(t, res.WeightedMargin)
	assert.Empty(t, res.ProductBreakdown)
	// Fixed-cost inputs still flow through unchanged.
	assert.Equal(t, 120.0, res.TransportCost)
	assert.Equal(t, 80.0, res.PackingCost)
	assert.Equal(t, 500.0, res.FreightCost)
	assert.Equal(t, 70.0, res.ImportDuty)
	assert.Equal(t, 100.0, res.OtherProcurementCosts)
	assert.Equal(t, 300.0, res.TotalProcurementCost)
	assert.Equal(t, 570.0, res.TotalLogisticsCost)
}

func TestCalculate_ZeroTotalProductValue(t *testing.T) {
	// Lines with quantity but no price: nothing to weight, nothing to
	// allocate, and no division by zero anywhere.
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "A", Quantity: 10, UnitPrice: 0, Margin: 25, Included: true},
			{Name: "B", Quantity: 3, UnitPrice: 0, Margin: 50, Included: true},
		},
		TransportCost: 200,
	}

	res := Calculate(input)

	assert.Zero(t, res.RawMaterialsCost)
	assert.Zero(t, res.WeightedMargin)
	assert.Equal(t, 200.0, res.TotalProcurementCost)
	require.Len(t, res.ProductBreakdown, 2)
	for _, pb := range res.ProductBreakdown {
		assert.Zero(t, pb.InvoicePrice)
		assert.Zero(t, pb.DistributorPrice)
		assert.Zero(t, pb.RetailerPrice)
	}
}

func TestCalculate_AllocationRoundTrip(t *testing.T) {
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "Pepper", Quantity: 7, UnitPrice: 311.17, Margin: 18.5, Included: true},
			{Name: "Nutmeg", Quantity: 13.25, UnitPrice: 42.6, Margin: 7, Included: true},
			{Name: "Clove", Quantity: 0.5, UnitPrice: 1290, Margin: 33, Included: true},
		},
		TransportCost:               812.4,
		PackingCost:                 55,
		FumigationCost:              31.5,
		CustomsClearanceCost:        120,
		ExportDutyRate:              3.3,
		FreightCost:                 1400,
		ImportDuty:                  260,
		DestinationCustomsClearance: 95,
		DestinationTransport:        310,
		DistributorMargin:           12.5,
		RetailerMargin:              27,
	}

	res := Calculate(input)

	var invoiceSum, distributorSum, retailerSum float64
	for _, pb := range res.ProductBreakdown {
		invoiceSum += pb.InvoicePrice * pb.Quantity
		distributorSum += pb.DistributorPrice * pb.Quantity
		retailerSum += pb.RetailerPrice * pb.Quantity
	}

	assert.InDelta(t, res.InvoiceValue, invoiceSum, math.Abs(res.InvoiceValue)*1e-6)
	assert.InDelta(t, res.DistributorPrice, distributorSum, math.Abs(res.DistributorPrice)*1e-6)
	assert.InDelta(t, res.RetailerPrice, retailerSum, math.Abs(res.RetailerPrice)*1e-6)
}

func TestCalculate_ProcurementIdentity(t *testing.T) {
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "A", Quantity: 2.5, UnitPrice: 19.99, Margin: 5, Included: true},
		},
		TransportCost:        10.01,
		PackingCost:          2.5,
		FumigationCost:       0.49,
		CustomsClearanceCost: 7,
	}

	res := Calculate(input)
	want := res.RawMaterialsCost + input.TransportCost + input.PackingCost + input.FumigationCost + input.CustomsClearanceCost
	assert.Equal(t, want, res.TotalProcurementCost)
}

func TestCalculate_DoesNotMutateInput(t *testing.T) {
	products := []ProductLine{
		{Name: "A", Quantity: 10, UnitPrice: 100, Margin: 15, Included: true},
		{Name: "B", Quantity: 2, UnitPrice: 30, Margin: 5, Included: false},
	}
	input := CalculationInput{
		Products:       products,
		TransportCost:  12,
		ExportDutyRate: 4,
	}
	before := CalculationInput{
		Products:       append([]ProductLine(nil), products...),
		TransportCost:  12,
		ExportDutyRate: 4,
	}

	first := Calculate(input)
	second := Calculate(input)

	assert.Equal(t, before, input)
	assert.Equal(t, first, second)
}

func TestCalculate_LineMarginDoesNotDriveLinePrice(t *testing.T) {
	// Equal value shares get identical per-unit prices even when the line
	// margins differ wildly. The margin is echoed for display only.
	input := CalculationInput{
		Products: []ProductLine{
			{Name: "high margin", Quantity: 10, UnitPrice: 100, Margin: 90, Included: true},
			{Name: "low margin", Quantity: 10, UnitPrice: 100, Margin: 1, Included: true},
		},
	}

	res := Calculate(input)
	require.Len(t, res.ProductBreakdown, 2)
	assert.Equal(t, res.ProductBreakdown[0].InvoicePrice, res.ProductBreakdown[1].InvoicePrice)
	assert.Equal(t, res.ProductBreakdown[0].RetailerPrice, res.ProductBreakdown[1].RetailerPrice)
	assert.Equal(t, 90.0, res.ProductBreakdown[0].Margin)
	assert.Equal(t, 1.0, res.ProductBreakdown[1].Margin)
}
