package export

import (
	"strconv"

	"github.com/kurochkinivan/docuextract/internal/domain"
)

// Row is one exported line item together with its document's header fields.
type Row struct {
	FileName        string `csv:"File Name"`
	DocumentType    string `csv:"Document Type"`
	Vendor          string `csv:"Vendor"`
	InvoiceNumber   string `csv:"Invoice #"`
	Date            string `csv:"Date"`
	Currency        string `csv:"Currency"`
	Tax             string `csv:"Tax"`
	Total           string `csv:"Total"`
	ItemDescription string `csv:"Item Description"`
	Qty             string `csv:"Qty"`
	UnitPrice       string `csv:"Unit Price"`
	ItemTotal       string `csv:"Item Total"`
}

var Header = []string{
	"File Name",
	"Document Type",
	"Vendor",
	"Invoice #",
	"Date",
	"Currency",
	"Tax",
	"Total",
	"Item Description",
	"Qty",
	"Unit Price",
	"Item Total",
}

func (r Row) values() []string {
	return []string{
		r.FileName,
		r.DocumentType,
		r.Vendor,
		r.InvoiceNumber,
		r.Date,
		r.Currency,
		r.Tax,
		r.Total,
		r.ItemDescription,
		r.Qty,
		r.UnitPrice,
		r.ItemTotal,
	}
}

// Rows flattens completed documents into line item rows, document then item order.
// Documents in any other status and documents without a result are skipped.
func Rows(docs []domain.Document) []Row {
	var rows []Row

	for _, doc := range docs {
		if doc.Status != domain.StatusComplete || doc.Result == nil {
			continue
		}

		r := doc.Result
		for _, item := range r.LineItems {
			rows = append(rows, Row{
				FileName:        doc.FileName,
				DocumentType:    string(r.DocumentType),
				Vendor:          r.VendorName,
				InvoiceNumber:   r.InvoiceNumber,
				Date:            r.Date,
				Currency:        r.Currency,
				Tax:             formatNumber(r.TaxAmount),
				Total:           formatNumber(r.TotalAmount),
				ItemDescription: item.Description,
				Qty:             formatNumber(item.Quantity),
				UnitPrice:       formatNumber(item.UnitPrice),
				ItemTotal:       formatNumber(item.Total),
			})
		}
	}

	return rows
}

// Eligible counts documents that contribute to an export.
func Eligible(docs []domain.Document) int {
	var n int
	for _, doc := range docs {
		if doc.Status == domain.StatusComplete && doc.Result != nil {
			n++
		}
	}

	return n
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
