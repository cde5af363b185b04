package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sangtrankt98/invoice-collection/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS attachment_results (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id                  TEXT NOT NULL,
	thread_id               TEXT NOT NULL,
	message_id              TEXT NOT NULL,
	subject                 TEXT,
	sender                  TEXT,
	internal_date           TIMESTAMP,
	filename                TEXT NOT NULL,
	origin                  TEXT NOT NULL,
	status                  TEXT NOT NULL,
	skip_reason             TEXT,
	error                   TEXT,
	renamed_path            TEXT,
	document_type           TEXT,
	document_number         TEXT,
	doc_date                TEXT,
	entity_name             TEXT,
	entity_tax_number       TEXT,
	counterparty_name       TEXT,
	counterparty_tax_number TEXT,
	payment_method          TEXT,
	amount_before_tax       REAL,
	tax_rate                REAL,
	tax_amount              REAL,
	total_amount            REAL,
	direction               TEXT,
	description             TEXT,
	file_limit_exceeded     INTEGER NOT NULL DEFAULT 0,
	created_at              TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_results_message ON attachment_results(message_id);
CREATE INDEX IF NOT EXISTS idx_results_run ON attachment_results(run_id);

CREATE TABLE IF NOT EXISTS processed_threads (
	thread_id    TEXT PRIMARY KEY,
	processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store persists extraction results and the processed-thread ledger in a
// local SQLite database. It implements pipeline.Sink. Each Store carries
// a run id so rows from the same invocation can be grouped later.
type Store struct {
	db    *sql.DB
	runID string
}

// Open creates the database file (and its parent directory) if needed
// and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, runID: uuid.NewString()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID returns the identifier assigned to this Store's invocation.
func (s *Store) RunID() string {
	return s.runID
}

// SaveMessage writes one row per attachment result. An empty runID uses
// the Store's own run id. Rows are append-only.
func (s *Store) SaveMessage(ctx context.Context, runID string, msg *pipeline.ProcessedMessage) error {
	if runID == "" {
		runID = s.runID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attachment_results (
			run_id, thread_id, message_id, subject, sender, internal_date,
			filename, origin, status, skip_reason, error, renamed_path,
			document_type, document_number, doc_date,
			entity_name, entity_tax_number,
			counterparty_name, counterparty_tax_number,
			payment_method, amount_before_tax, tax_rate, tax_amount,
			total_amount, direction, description, file_limit_exceeded
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range msg.Results {
		record := r.Record
		if record == nil {
			record = &pipeline.ExtractionRecord{}
		}
		_, err := stmt.ExecContext(ctx,
			runID, msg.ThreadID, msg.MessageID, msg.Subject, msg.From, msg.InternalDate,
			r.Candidate.Filename, string(r.Candidate.Origin), string(r.Status), r.SkipReason, r.Error, r.RenamedPath,
			record.DocumentType, record.DocumentNumber, record.Date,
			record.EntityName, record.EntityTaxNumber,
			record.CounterpartyName, record.CounterpartyTaxNumber,
			record.PaymentMethod, record.AmountBeforeTax, record.TaxRate, record.TaxAmount,
			record.TotalAmount, record.Direction, record.Description, msg.FileLimitExceeded)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", r.Candidate.Filename, err)
		}
	}

	return tx.Commit()
}

// MarkThreadProcessed records a thread in the ledger, refreshing the
// timestamp when the thread was seen before.
func (s *Store) MarkThreadProcessed(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_threads (thread_id, processed_at)
		VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(thread_id) DO UPDATE SET processed_at = CURRENT_TIMESTAMP`,
		threadID)
	if err != nil {
		return fmt.Errorf("failed to mark thread processed: %w", err)
	}
	return nil
}

// WasThreadProcessed reports whether a thread was recorded within the
// lookback window. A non-positive lookback checks the whole ledger.
func (s *Store) WasThreadProcessed(ctx context.Context, threadID string, lookbackDays int) (bool, error) {
	query := "SELECT COUNT(1) FROM processed_threads WHERE thread_id = ?"
	args := []any{threadID}
	if lookbackDays > 0 {
		query += " AND processed_at >= datetime('now', ?)"
		args = append(args, fmt.Sprintf("-%d days", lookbackDays))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return count > 0, nil
}
