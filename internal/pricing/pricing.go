// Package pricing computes landed-cost and multi-tier resale pricing for
// export shipments of bulk commodities.
//
// Calculate is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
//
// All arithmetic uses float64. Persisted monetary values are converted to
// decimal strings at the storage boundary, not here.
package pricing

// ProductLine is one commodity entry of a pricing request.
type ProductLine struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Included  bool    `json:"included"`
	Margin    float64 `json:"margin"`
}

// CalculationInput carries every figure a pricing request needs. All monetary
// and quantity fields are expected to be non-negative; percentages above 100
// are legal and are never clamped. Range validation is the caller's job.
type CalculationInput struct {
	Products []ProductLine `json:"products"`

	// Origin-side procurement costs.
	TransportCost        float64 `json:"transportCost"`
	PackingCost          float64 `json:"packingCost"`
	FumigationCost       float64 `json:"fumigationCost"`
	CustomsClearanceCost float64 `json:"customsClearanceCost"`

	// Export duty applied to the pre-duty invoice value.
	ExportDutyRate float64 `json:"exportDutyRate"`

	// Destination-side logistics costs.
	FreightCost                 float64 `json:"freightCost"`
	ImportDuty                  float64 `json:"importDuty"`
	DestinationCustomsClearance float64 `json:"destinationCustomsClearance"`
	DestinationTransport        float64 `json:"destinationTransport"`

	// Resale tier margins, applied multiplicatively in sequence.
	DistributorMargin float64 `json:"distributorMargin"`
	RetailerMargin    float64 `json:"retailerMargin"`
}

// ProductBreakdown is the per-product slice of the blended totals. The margin
// field echoes the input line margin; it does not drive this line's prices.
// Only the blended weighted margin does. That is a deliberate business rule
// of the original estimates, not a bug: two products with equal value shares
// receive identical per-unit pricing regardless of their individual margins.
type ProductBreakdown struct {
	Name             string  `json:"name"`
	Quantity         float64 `json:"quantity"`
	UnitCost         float64 `json:"unitCost"`
	Margin           float64 `json:"margin"`
	InvoicePrice     float64 `json:"invoicePrice"`
	DistributorPrice float64 `json:"distributorPrice"`
	RetailerPrice    float64 `json:"retailerPrice"`
}

// CalculationResults contains every intermediate subtotal of the staged
// computation plus the per-product breakdown.
type CalculationResults struct {
	RawMaterialsCost      float64 `json:"rawMaterialsCost"`
	TransportCost         float64 `json:"transportCost"`
	PackingCost           float64 `json:"packingCost"`
	OtherProcurementCosts float64 `json:"otherProcurementCosts"`
	TotalProcurementCost  float64 `json:"totalProcurementCost"`

	WeightedMargin      float64 `json:"weightedMargin"`
	MarginAmount        float64 `json:"marginAmount"`
	PreDutyInvoiceValue float64 `json:"preDutyInvoiceValue"`
	ExportDutyAmount    float64 `json:"exportDutyAmount"`
	InvoiceValue        float64 `json:"invoiceValue"`

	FreightCost         float64 `json:"freightCost"`
	ImportDuty          float64 `json:"importDuty"`
	OtherLogisticsCosts float64 `json:"otherLogisticsCosts"`
	TotalLogisticsCost  float64 `json:"totalLogisticsCost"`
	ImporterTotalCost   float64 `json:"importerTotalCost"`

	DistributorPrice      float64 `json:"distributorPrice"`
	RetailerPrice         float64 `json:"retailerPrice"`
	TotalMarginPercentage float64 `json:"totalMarginPercentage"`

	ProductBreakdown []ProductBreakdown `json:"productBreakdown"`
}

// Calculate derives the full cost-and-price breakdown from the input. The
// stage order is part of the contract: each subtotal feeds the next, so
// reordering changes the numbers. The function never mutates its input and
// is total over the documented domain; out-of-range input is not rejected
// here and simply flows through the arithmetic.
func Calculate(input CalculationInput) CalculationResults {
	// Lines flagged out or without quantity are invisible to every total.
	lines := make([]ProductLine, 0, len(input.Products))
	for _, p := range input.Products {
		if p.Included && p.Quantity > 0 {
			lines = append(lines, p)
		}
	}

	var rawMaterialsCost float64
	for _, p := range lines {
		rawMaterialsCost += p.Quantity * p.UnitPrice
	}
	totalProductValue := rawMaterialsCost

	otherProcurementCosts := input.FumigationCost + input.CustomsClearanceCost
	totalProcurementCost := rawMaterialsCost + input.TransportCost + input.PackingCost + otherProcurementCosts

	// Value-share-weighted average of the per-line margins. Zero total value
	// means nothing to weight, not a division by zero.
	var weightedMargin float64
	if totalProductValue > 0 {
		for _, p := range lines {
			weightedMargin += p.Margin * (p.Quantity * p.UnitPrice / totalProductValue)
		}
	}

	marginAmount := totalProcurementCost * (weightedMargin / 100)
	preDutyInvoiceValue := totalProcurementCost + marginAmount
	exportDutyAmount := preDutyInvoiceValue * (input.ExportDutyRate / 100)
	invoiceValue := preDutyInvoiceValue + exportDutyAmount

	otherLogisticsCosts := input.DestinationCustomsClearance + input.DestinationTransport
	totalLogisticsCost := input.FreightCost + input.ImportDuty + otherLogisticsCosts
	importerTotalCost := invoiceValue + totalLogisticsCost

	distributorPrice := importerTotalCost * (1 + input.DistributorMargin/100)
	retailerPrice := distributorPrice * (1 + input.RetailerMargin/100)

	var totalMarginPercentage float64
	if totalProcurementCost > 0 {
		totalMarginPercentage = (retailerPrice - totalProcurementCost) / totalProcurementCost * 100
	}

	// Distribute the blended totals back to per-unit prices by value share.
	// With zero total value every allocation is zero regardless of quantity.
	breakdown := make([]ProductBreakdown, 0, len(lines))
	for _, p := range lines {
		var share float64
		if totalProductValue > 0 {
			share = p.Quantity * p.UnitPrice / totalProductValue
		}
		breakdown = append(breakdown, ProductBreakdown{
			Name:             p.Name,
			Quantity:         p.Quantity,
			UnitCost:         p.UnitPrice,
			Margin:           p.Margin,
			InvoicePrice:     invoiceValue * share / p.Quantity,
			DistributorPrice: distributorPrice * share / p.Quantity,
			RetailerPrice:    retailerPrice * share / p.Quantity,
		})
	}

	return CalculationResults{
		RawMaterialsCost:      rawMaterialsCost,
		TransportCost:         input.TransportCost,
		PackingCost:           input.PackingCost,
		OtherProcurementCosts: otherProcurementCosts,
		TotalProcurementCost:  totalProcurementCost,
		WeightedMargin:        weightedMargin,
		MarginAmount:          marginAmount,
		PreDutyInvoiceValue:   preDutyInvoiceValue,
		ExportDutyAmount:      exportDutyAmount,
		InvoiceValue:          invoiceValue,
		FreightCost:           input.FreightCost,
		ImportDuty:            input.ImportDuty,
		OtherLogisticsCosts:   otherLogisticsCosts,
		TotalLogisticsCost:    totalLogisticsCost,
		ImporterTotalCost:     importerTotalCost,
		DistributorPrice:      distributorPrice,
		RetailerPrice:         retailerPrice,
		TotalMarginPercentage: totalMarginPercentage,
		ProductBreakdown:      breakdown,
	}
}
