package docai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	raw := `{
		"document_type": "invoice",
		"document_number": "INV-2025-0042",
		"date": "2025-08-14",
		"entity_name": "Acme GmbH",
		"entity_tax_number": "DE123456789",
		"counterparty_name": "Widgets Ltd",
		"counterparty_tax_number": "",
		"payment_method": "bank transfer",
		"amount_before_tax": 100.0,
		"tax_rate": 19,
		"tax_amount": 19.0,
		"total_amount": 119.0,
		"direction": null,
		"description": "office supplies"
	}`

	record, err := ParseRecord(raw)
	require.NoError(t, err)

	require.NotNil(t, record.DocumentType)
	assert.Equal(t, "invoice", *record.DocumentType)
	require.NotNil(t, record.DocumentNumber)
	assert.Equal(t, "INV-2025-0042", *record.DocumentNumber)
	require.NotNil(t, record.TotalAmount)
	assert.Equal(t, 119.0, *record.TotalAmount)

	assert.Nil(t, record.CounterpartyTaxNumber, "empty string should normalize to nil")
	assert.Nil(t, record.Direction, "null should stay nil")
}

func TestParseRecordKeepsNumericZero(t *testing.T) {
	record, err := ParseRecord(`{"tax_rate": 0, "tax_amount": 0.0, "total_amount": 50}`)
	require.NoError(t, err)

	require.NotNil(t, record.TaxRate)
	assert.Equal(t, 0.0, *record.TaxRate)
	require.NotNil(t, record.TaxAmount)
	assert.Equal(t, 0.0, *record.TaxAmount)
}

func TestParseRecordQuotedNumbers(t *testing.T) {
	record, err := ParseRecord(`{"total_amount": "1,234.56", "amount_before_tax": "not a number"}`)
	require.NoError(t, err)

	require.NotNil(t, record.TotalAmount)
	assert.Equal(t, 1234.56, *record.TotalAmount)
	assert.Nil(t, record.AmountBeforeTax)
}

func TestParseRecordCodeFence(t *testing.T) {
	record, err := ParseRecord("```json\n{\"document_type\": \"receipt\"}\n```")
	require.NoError(t, err)

	require.NotNil(t, record.DocumentType)
	assert.Equal(t, "receipt", *record.DocumentType)
}

func TestParseRecordInvalidJSON(t *testing.T) {
	_, err := ParseRecord("the document is an invoice")
	assert.Error(t, err)
}
