package pipeline

import (
	"context"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/sangtrankt98/invoice-collection/internal/drive"
)

// CandidateOrigin records how an attachment candidate entered the pipeline.
type CandidateOrigin string

const (
	OriginDirect        CandidateOrigin = "direct"
	OriginDriveLink     CandidateOrigin = "drive-link"
	OriginArchiveMember CandidateOrigin = "archive-member"
)

// Candidate is a file queued for extraction. Data is on disk by the time
// the classifier sees it; Path points into the per-run download directory.
type Candidate struct {
	Filename string
	Path     string
	MimeType string
	Origin   CandidateOrigin

	// SourceID identifies where the candidate came from: an attachment id
	// for direct attachments, a Drive file id for linked files, or the
	// enclosing archive's filename for archive members.
	SourceID string

	// MessageID is the owning Gmail message, needed to fetch direct
	// attachments by attachment id.
	MessageID string

	// Data holds the payload for attachments that arrive inline rather
	// than by attachment id. Nil for deferred payloads.
	Data []byte
}

// ResultStatus classifies the outcome for a single candidate.
type ResultStatus string

const (
	StatusProcessed ResultStatus = "processed"
	StatusSkipped   ResultStatus = "skipped"
	StatusError     ResultStatus = "error"
)

// Skip reasons carried on skipped results.
const (
	SkipReasonPreflightLimit = "file_limit_preflight"
	SkipReasonRunningLimit   = "file_limit_reached"
	SkipReasonUnsupported    = "unsupported_type"
)

// ExtractionRecord is the normalized document payload. Pointer fields
// distinguish "absent" from zero values; an extractor that cannot read a
// field leaves it nil, and numeric zeros are preserved as real values.
type ExtractionRecord struct {
	DocumentType          *string  `json:"document_type"`
	DocumentNumber        *string  `json:"document_number"`
	Date                  *string  `json:"date"`
	EntityName            *string  `json:"entity_name"`
	EntityTaxNumber       *string  `json:"entity_tax_number"`
	CounterpartyName      *string  `json:"counterparty_name"`
	CounterpartyTaxNumber *string  `json:"counterparty_tax_number"`
	PaymentMethod         *string  `json:"payment_method"`
	AmountBeforeTax       *float64 `json:"amount_before_tax"`
	TaxRate               *float64 `json:"tax_rate"`
	TaxAmount             *float64 `json:"tax_amount"`
	TotalAmount           *float64 `json:"total_amount"`
	Direction             *string  `json:"direction"`
	Description           *string  `json:"description"`
}

// Result is the outcome of processing one candidate.
type Result struct {
	Candidate  Candidate
	Status     ResultStatus
	SkipReason string
	Error      string

	// Record is set for processed candidates.
	Record *ExtractionRecord

	// RenamedPath is where the file ended up after the post-extraction
	// rename, empty when the rename did not happen.
	RenamedPath string
}

// ProcessedMessage aggregates the results for the single selected message
// of a thread.
type ProcessedMessage struct {
	ThreadID     string
	MessageID    string
	Subject      string
	From         string
	InternalDate time.Time

	DirectCount       int
	ArchiveCount      int
	ProcessedCount    int
	FileLimitExceeded bool

	Results []Result
}

// MailSource is the slice of the Gmail client the pipeline depends on.
type MailSource interface {
	ListThreads(ctx context.Context, query string, maxResults int64) ([]*gmail.Thread, error)
	GetThread(ctx context.Context, threadID string) (*gmail.Thread, error)
	Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// FolderSource is the slice of the Drive client the pipeline depends on.
type FolderSource interface {
	GetFile(ctx context.Context, fileID string) (*drive.FileInfo, error)
	ListFolder(ctx context.Context, folderID string) ([]*drive.FileInfo, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Extractor turns document content into an ExtractionRecord.
type Extractor interface {
	ExtractFromText(ctx context.Context, text string) (*ExtractionRecord, error)
	ExtractFromImage(ctx context.Context, imageData []byte) (*ExtractionRecord, error)
}

// Sink persists pipeline output and the processed-thread ledger.
type Sink interface {
	SaveMessage(ctx context.Context, runID string, msg *ProcessedMessage) error
	MarkThreadProcessed(ctx context.Context, threadID string) error
	WasThreadProcessed(ctx context.Context, threadID string, lookbackDays int) (bool, error)
}
