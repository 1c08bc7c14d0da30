package report_generator

import (
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/kurochkinivan/docuextract/internal/domain"
)

const (
	titleHeight = 12
	rowHeight   = 7
)

var (
	titleStyle  = props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}
	labelStyle  = props.Text{Size: 9, Style: fontstyle.Bold}
	valueStyle  = props.Text{Size: 9}
	headerStyle = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Center}
	cellStyle   = props.Text{Size: 9, Align: align.Center}
)

// Generator renders one-page PDF summaries of completed extractions.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) GenerateReport(outputPath string, doc domain.Document) error {
	data, err := g.Render(doc)
	if err != nil {
		return err
	}

	pdf, err := data.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate pdf: %w", err)
	}

	if err := pdf.Save(outputPath); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Render lays out the report without writing it anywhere.
func (g *Generator) Render(doc domain.Document) (core.Maroto, error) {
	if doc.Result == nil {
		return nil, fmt.Errorf("document %s has no extraction result", doc.ID)
	}

	r := doc.Result

	cfg := config.NewBuilder().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()

	m := maroto.New(cfg)

	m.AddRows(text.NewRow(titleHeight, "Extraction Report", titleStyle))

	fields := [][2]string{
		{"File", doc.FileName},
		{"Document Type", string(r.DocumentType)},
		{"Vendor", r.VendorName},
		{"Vendor Address", r.VendorAddress},
		{"Invoice #", r.InvoiceNumber},
		{"Date", r.Date},
		{"Due Date", r.DueDate},
		{"Currency", r.Currency},
		{"Tax", formatNumber(r.TaxAmount)},
		{"Total", formatNumber(r.TotalAmount)},
		{"Confidence", formatNumber(r.Confidence)},
	}

	for _, f := range fields {
		if f[1] == "" {
			continue
		}

		m.AddRow(rowHeight,
			text.NewCol(4, f[0], labelStyle),
			text.NewCol(8, f[1], valueStyle),
		)
	}

	if len(r.LineItems) > 0 {
		m.AddRows(text.NewRow(titleHeight, "Line Items", titleStyle))

		m.AddRow(rowHeight,
			text.NewCol(6, "Description", headerStyle),
			text.NewCol(2, "Qty", headerStyle),
			text.NewCol(2, "Unit Price", headerStyle),
			text.NewCol(2, "Total", headerStyle),
		)

		for _, item := range r.LineItems {
			m.AddRow(rowHeight,
				text.NewCol(6, item.Description, cellStyle),
				text.NewCol(2, formatNumber(item.Quantity), cellStyle),
				text.NewCol(2, formatNumber(item.UnitPrice), cellStyle),
				text.NewCol(2, formatNumber(item.Total), cellStyle),
			)
		}
	}

	if r.Summary != "" {
		m.AddRows(text.NewRow(rowHeight*2, r.Summary, valueStyle))
	}

	return m, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
