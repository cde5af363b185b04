package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReportRow is one attachment result as read back for reporting.
type ReportRow struct {
	ThreadID     string
	MessageID    string
	Subject      string
	Sender       string
	InternalDate time.Time
	Filename     string
	Origin       string
	Status       string
	SkipReason   string
	Error        string

	DocumentType          *string
	DocumentNumber        *string
	Date                  *string
	EntityName            *string
	EntityTaxNumber       *string
	CounterpartyName      *string
	CounterpartyTaxNumber *string
	PaymentMethod         *string
	AmountBeforeTax       *float64
	TaxRate               *float64
	TaxAmount             *float64
	TotalAmount           *float64
	Direction             *string
	Description           *string
}

// ReportRows reads back attachment results ordered by insertion. With a
// non-empty runID only that run's rows are returned; sinceDays > 0
// restricts to recently created rows.
func (s *Store) ReportRows(ctx context.Context, runID string, sinceDays int) ([]ReportRow, error) {
	query := `
		SELECT thread_id, message_id, subject, sender, internal_date,
		       filename, origin, status, skip_reason, error,
		       document_type, document_number, doc_date,
		       entity_name, entity_tax_number,
		       counterparty_name, counterparty_tax_number,
		       payment_method, amount_before_tax, tax_rate, tax_amount,
		       total_amount, direction, description
		FROM attachment_results WHERE 1=1`
	var args []any
	if runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	if sinceDays > 0 {
		query += " AND created_at >= datetime('now', ?)"
		args = append(args, fmt.Sprintf("-%d days", sinceDays))
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query report rows: %w", err)
	}
	defer rows.Close()

	var report []ReportRow
	for rows.Next() {
		var r ReportRow
		var subject, sender, skipReason, errText sql.NullString
		if err := rows.Scan(
			&r.ThreadID, &r.MessageID, &subject, &sender, &r.InternalDate,
			&r.Filename, &r.Origin, &r.Status, &skipReason, &errText,
			&r.DocumentType, &r.DocumentNumber, &r.Date,
			&r.EntityName, &r.EntityTaxNumber,
			&r.CounterpartyName, &r.CounterpartyTaxNumber,
			&r.PaymentMethod, &r.AmountBeforeTax, &r.TaxRate, &r.TaxAmount,
			&r.TotalAmount, &r.Direction, &r.Description,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		r.Subject = subject.String
		r.Sender = sender.String
		r.SkipReason = skipReason.String
		r.Error = errText.String
		report = append(report, r)
	}

	return report, rows.Err()
}
