package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sangtrankt98/invoice-collection/internal/storage"
)

const sheetName = "Results"

var headers = []any{
	"Thread", "Message", "Subject", "Sender", "Received",
	"Filename", "Origin", "Status", "Skip Reason", "Error",
	"Document Type", "Document Number", "Date",
	"Entity Name", "Entity Tax Number",
	"Counterparty Name", "Counterparty Tax Number",
	"Payment Method", "Amount Before Tax", "Tax Rate", "Tax Amount",
	"Total Amount", "Direction", "Description",
}

// WriteXLSX renders report rows into a spreadsheet at path, creating the
// parent directory if needed.
func WriteXLSX(path string, rows []storage.ReportRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}

		received := ""
		if !row.InternalDate.IsZero() {
			received = row.InternalDate.Format(time.RFC3339)
		}

		values := []any{
			row.ThreadID, row.MessageID, row.Subject, row.Sender, received,
			row.Filename, row.Origin, row.Status, row.SkipReason, row.Error,
			strValue(row.DocumentType), strValue(row.DocumentNumber), strValue(row.Date),
			strValue(row.EntityName), strValue(row.EntityTaxNumber),
			strValue(row.CounterpartyName), strValue(row.CounterpartyTaxNumber),
			strValue(row.PaymentMethod), numValue(row.AmountBeforeTax), numValue(row.TaxRate), numValue(row.TaxAmount),
			numValue(row.TotalAmount), strValue(row.Direction), strValue(row.Description),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}
	return nil
}

func strValue(s *string) any {
	if s == nil {
		return ""
	}
	return *s
}

func numValue(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}
