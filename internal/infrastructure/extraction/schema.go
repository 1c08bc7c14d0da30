package extraction

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "extraction.json"

// extractionSchema describes the "data" object returned by the extraction service.
// Models are told to emit null for missing values, so optional fields accept it.
const extractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["documentType", "vendorName", "totalAmount"],
  "properties": {
    "documentType":  {"type": "string"},
    "vendorName":    {"type": "string"},
    "vendorAddress": {"type": ["string", "null"]},
    "invoiceNumber": {"type": ["string", "null"]},
    "date":          {"type": ["string", "null"]},
    "dueDate":       {"type": ["string", "null"]},
    "totalAmount":   {"type": "number"},
    "taxAmount":     {"type": ["number", "null"]},
    "currency":      {"type": ["string", "null"]},
    "summary":       {"type": ["string", "null"]},
    "lineItems": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "description": {"type": ["string", "null"]},
          "quantity":    {"type": ["number", "null"]},
          "unitPrice":   {"type": ["number", "null"]},
          "total":       {"type": ["number", "null"]},
          "sku":         {"type": ["string", "null"]}
        }
      }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(schemaURL, strings.NewReader(extractionSchema)); err != nil {
		return nil, fmt.Errorf("failed to add schema: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
