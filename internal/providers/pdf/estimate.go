package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type EstimateData struct {
	RecordID    string
	Container   string
	Destination string
	Status      string
	GeneratedAt string

	Products []EstimateProduct

	CostLines []EstimateCostLine

	InvoiceValue     string
	ImporterCost     string
	DistributorPrice string
	RetailerPrice    string
}

type EstimateProduct struct {
	Name             string
	Qty              string
	UnitCost         string
	InvoicePrice     string
	DistributorPrice string
	RetailerPrice    string
}

// EstimateCostLine is one labelled amount in the cost build-up section.
type EstimateCostLine struct {
	Label  string
	Amount string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateEstimate(ctx context.Context, data EstimateData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(10,
		text.NewCol(12, "Export Cost Estimate", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Record: "+data.RecordID, props.Text{Top: 0}),
			text.New("Container: "+data.Container, props.Text{Top: 4}),
			text.New("Destination: "+data.Destination, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Status: "+data.Status, props.Text{Top: 0}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 4}),
		),
	)

	m.AddRow(12,
		text.NewCol(12, "Cost Build-Up", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)
	for _, line := range data.CostLines {
		m.AddRow(7,
			text.NewCol(8, line.Label, props.Text{Size: 9}),
			text.NewCol(4, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		text.NewCol(12, "Products", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)
	m.AddRow(8,
		text.NewCol(3, "Product", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit cost", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Invoice", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Distributor", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Retailer", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, item := range data.Products {
		m.AddRow(8,
			text.NewCol(3, item.Name, props.Text{Size: 9}),
			text.NewCol(1, item.Qty, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitCost, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.InvoicePrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.DistributorPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.RetailerPrice, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		text.NewCol(12, "Resale Tiers", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)
	totals := []EstimateCostLine{
		{Label: "Invoice value (FOB)", Amount: data.InvoiceValue},
		{Label: "Importer landed cost", Amount: data.ImporterCost},
		{Label: "Distributor price", Amount: data.DistributorPrice},
		{Label: "Retailer price", Amount: data.RetailerPrice},
	}
	for _, line := range totals {
		m.AddRow(8,
			col.New(6),
			text.NewCol(4, line.Label, props.Text{Size: 9}),
			text.NewCol(2, line.Amount, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate estimate pdf: %w", err)
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
