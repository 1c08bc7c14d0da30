package domain

import (
	"fmt"
	"slices"
	"strings"
)

type DocumentType string

const (
	DocumentTypeInvoice       DocumentType = "Invoice"
	DocumentTypeReceipt       DocumentType = "Receipt"
	DocumentTypeBankStatement DocumentType = "Bank Statement"
	DocumentTypeInsuranceEOB  DocumentType = "Insurance EOB"
	DocumentTypeUnknown       DocumentType = "Unknown"
)

const DefaultCurrency = "USD"

var knownDocumentTypes = []DocumentType{
	DocumentTypeInvoice,
	DocumentTypeReceipt,
	DocumentTypeBankStatement,
	DocumentTypeInsuranceEOB,
	DocumentTypeUnknown,
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
	SKU         string  `json:"sku,omitempty"`
}

// Extraction is the normalized data returned by the extraction service for one document.
type Extraction struct {
	DocumentType  DocumentType `json:"documentType"`
	VendorName    string       `json:"vendorName"`
	VendorAddress string       `json:"vendorAddress,omitempty"`
	InvoiceNumber string       `json:"invoiceNumber"`
	Date          string       `json:"date"`
	DueDate       string       `json:"dueDate,omitempty"`
	TotalAmount   float64      `json:"totalAmount"`
	TaxAmount     float64      `json:"taxAmount"`
	Currency      string       `json:"currency"`
	LineItems     []LineItem   `json:"lineItems"`
	Summary       string       `json:"summary,omitempty"`

	Confidence float64 `json:"confidence,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Duplicate  bool    `json:"duplicate,omitempty"`
}

// Normalize fills defaults the service is allowed to omit.
func (e *Extraction) Normalize() {
	e.VendorName = strings.TrimSpace(e.VendorName)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}

	if !slices.Contains(knownDocumentTypes, e.DocumentType) {
		e.DocumentType = DocumentTypeUnknown
	}

	if e.LineItems == nil {
		e.LineItems = []LineItem{}
	}
}

func (e *Extraction) Validate() error {
	if e.VendorName == "" {
		return fmt.Errorf("vendorName is required")
	}

	for i, item := range e.LineItems {
		if item.Quantity < 0 {
			return fmt.Errorf("line item #%d: quantity must not be negative", i+1)
		}
	}

	return nil
}

func (e *Extraction) Clone() *Extraction {
	if e == nil {
		return nil
	}

	c := *e
	c.LineItems = slices.Clone(e.LineItems)

	return &c
}
