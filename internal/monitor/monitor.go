// Package monitor validates incoming order submissions against a JSON
// schema before they are bound into request structs, so malformed bodies
// are rejected with a precise error list instead of a bind failure.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// OrderSubmissionSchema is the contract for POST /orders bodies. It
// checks shape and basic constraints; business validation (regions,
// screening rules) happens in the coordinator.
const OrderSubmissionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["email", "currency_code", "line_items", "shipping_address", "payment_intent_id"],
  "properties": {
    "merchant_order_id": {"type": "string"},
    "email": {"type": "string", "minLength": 3},
    "currency_code": {"type": "string", "minLength": 3, "maxLength": 3},
    "payment_intent_id": {"type": "string"},
    "line_items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "quantity", "unit_price"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "quantity": {"type": "integer", "minimum": 1},
          "unit_price": {"type": ["number", "string"]},
          "sku": {"type": "string"}
        }
      }
    },
    "shipping_address": {
      "type": "object",
      "required": ["country_code"],
      "properties": {
        "country_code": {"type": "string", "minLength": 2, "maxLength": 2}
      }
    },
    "billing_address": {"type": "object"},
    "shipping_method_name": {"type": "string"},
    "shipping_total": {"type": ["number", "string"]},
    "subtotal": {"type": ["number", "string"]},
    "tax_total": {"type": ["number", "string"]},
    "total": {"type": ["number", "string"]}
  }
}`

// ContractMonitor validates request bodies against a compiled schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles the given schema document.
func NewContractMonitor(schemaDoc string) (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaDoc))
	if err != nil {
		return nil, fmt.Errorf("monitor: compile schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate checks the body against the schema. It returns true if valid,
// or false and the list of violations.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("monitor: validate: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors joins violations into a single message for error bodies.
func FormatErrors(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(violations, "; ")
}
