package docai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sangtrankt98/invoice-collection/internal/pipeline"
)

// ParseRecord decodes a model response into an ExtractionRecord. The model
// occasionally returns empty strings for missing fields or numbers quoted
// as strings; both are normalized here. A numeric zero is a real value and
// stays set.
func ParseRecord(raw string) (*pipeline.ExtractionRecord, error) {
	raw = stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	record := &pipeline.ExtractionRecord{
		DocumentType:          stringField(fields, "document_type"),
		DocumentNumber:        stringField(fields, "document_number"),
		Date:                  stringField(fields, "date"),
		EntityName:            stringField(fields, "entity_name"),
		EntityTaxNumber:       stringField(fields, "entity_tax_number"),
		CounterpartyName:      stringField(fields, "counterparty_name"),
		CounterpartyTaxNumber: stringField(fields, "counterparty_tax_number"),
		PaymentMethod:         stringField(fields, "payment_method"),
		AmountBeforeTax:       numberField(fields, "amount_before_tax"),
		TaxRate:               numberField(fields, "tax_rate"),
		TaxAmount:             numberField(fields, "tax_amount"),
		TotalAmount:           numberField(fields, "total_amount"),
		Direction:             stringField(fields, "direction"),
		Description:           stringField(fields, "description"),
	}

	return record, nil
}

// stripCodeFence drops a markdown fence around the JSON body when present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringField(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Non-string scalars (e.g. a bare number) keep their text form.
		text := strings.TrimSpace(string(raw))
		if text == "" || text == "null" {
			return nil
		}
		return &text
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	// Quoted numbers, possibly with thousands separators.
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
