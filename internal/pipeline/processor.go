package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/sangtrankt98/invoice-collection/internal/archive"
	"github.com/sangtrankt98/invoice-collection/internal/gmail"
	"github.com/sangtrankt98/invoice-collection/internal/logging"
	"github.com/sangtrankt98/invoice-collection/internal/metrics"
)

// Config tunes the per-message quota and the on-disk layout.
type Config struct {
	// DownloadDir receives one subdirectory per processed message.
	DownloadDir string

	// MaxFilesPerMessage caps the number of files extracted per message.
	MaxFilesPerMessage int

	// ArchiveCountLimit and DirectCountLimit feed the pre-flight
	// estimate; a message above either limit is skipped wholesale.
	ArchiveCountLimit int
	DirectCountLimit  int

	// LookbackDays bounds the processed-thread ledger check.
	LookbackDays int
}

// Processor drives the full ingestion flow: thread selection, candidate
// collection, quota-guarded admission, archive expansion and document
// extraction. Messages are processed sequentially; the Guard keeps the
// running count safe should extraction within a message ever fan out.
type Processor struct {
	mail     MailSource
	folders  FolderSource
	docs     *DocProcessor
	sink     Sink
	expander *archive.Expander
	logger   *slog.Logger
	cfg      Config
}

// NewProcessor wires a Processor. The sink may be nil, in which case
// results are only returned, not persisted, and no ledger is consulted.
func NewProcessor(mail MailSource, folders FolderSource, docs *DocProcessor, sink Sink, logger *slog.Logger, cfg Config) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		mail:     mail,
		folders:  folders,
		docs:     docs,
		sink:     sink,
		expander: archive.NewExpander(logger),
		logger:   logger,
		cfg:      cfg,
	}
}

// Ingest runs the pipeline over every thread matching the query and
// returns one ProcessedMessage per thread that had a qualifying message.
// Threads already recorded in the ledger within the lookback window are
// skipped. A broken thread is logged and excluded; only listing failures
// abort the run.
func (p *Processor) Ingest(ctx context.Context, query string, cutoff *time.Time, maxResults int64) ([]ProcessedMessage, error) {
	threads, err := p.mail.ListThreads(ctx, TimeFilterQuery(query, cutoff), maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	var processed []ProcessedMessage
	for _, stub := range threads {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		if p.sink != nil {
			seen, err := p.sink.WasThreadProcessed(ctx, stub.Id, p.cfg.LookbackDays)
			if err != nil {
				p.logger.Error("ledger lookup failed",
					logging.Operation("ingest"),
					logging.Thread(stub.Id),
					logging.Err(err))
			} else if seen {
				p.logger.Info("thread already processed",
					logging.Operation("ingest"),
					logging.Thread(stub.Id),
					logging.Status(logging.StatusSkipped))
				continue
			}
		}

		thread, err := p.mail.GetThread(ctx, stub.Id)
		if err != nil {
			p.logger.Error("failed to fetch thread",
				logging.Operation("ingest"),
				logging.Thread(stub.Id),
				logging.Err(err),
				logging.Status(logging.StatusError))
			continue
		}

		msg, err := SelectMessage(thread, cutoff)
		if err != nil {
			p.logger.Error("skipping broken thread",
				logging.Operation("ingest"),
				logging.Thread(stub.Id),
				logging.Err(err),
				logging.Status(logging.StatusError))
			continue
		}
		if msg == nil {
			continue
		}

		start := time.Now()
		pm := p.processMessage(ctx, thread.Id, msg)
		metrics.MessagesProcessed.Inc()
		p.logger.Info("message processed",
			logging.Operation("ingest"),
			logging.Thread(thread.Id),
			logging.Message(msg.Id),
			logging.UserHash(gmail.HeaderValue(msg, "From")),
			slog.Int("results", len(pm.Results)),
			slog.Bool("file_limit_exceeded", pm.FileLimitExceeded),
			logging.Duration(time.Since(start)),
			logging.Status(logging.StatusSuccess))

		processed = append(processed, *pm)

		if p.sink != nil {
			if err := p.sink.SaveMessage(ctx, "", pm); err != nil {
				p.logger.Error("failed to persist results",
					logging.Operation("ingest"),
					logging.Message(msg.Id),
					logging.Err(err))
			}
			if err := p.sink.MarkThreadProcessed(ctx, thread.Id); err != nil {
				p.logger.Error("failed to mark thread processed",
					logging.Operation("ingest"),
					logging.Thread(thread.Id),
					logging.Err(err))
			}
		}
	}

	return processed, nil
}

// processMessage handles one selected message end to end. Every candidate
// that was ever discovered ends up in Results; nothing is dropped
// silently.
func (p *Processor) processMessage(ctx context.Context, threadID string, msg *gmailapi.Message) *ProcessedMessage {
	pm := &ProcessedMessage{
		ThreadID:     threadID,
		MessageID:    msg.Id,
		Subject:      gmail.HeaderValue(msg, "Subject"),
		From:         gmail.HeaderValue(msg, "From"),
		InternalDate: MessageTime(msg),
	}

	dir := filepath.Join(p.cfg.DownloadDir, msg.Id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		p.logger.Error("failed to create download dir",
			logging.Operation("ingest"),
			logging.Message(msg.Id),
			logging.Err(err))
		return pm
	}

	candidates, failures := collectCandidates(ctx, p.folders, msg, p.logger)
	pm.Results = append(pm.Results, failures...)
	metrics.AttachmentsErrored.Add(float64(len(failures)))

	pm.DirectCount = len(candidates)
	for _, c := range candidates {
		if archive.IsArchive(c.Filename) {
			pm.ArchiveCount++
		}
	}

	guard := NewGuard(p.cfg.MaxFilesPerMessage, p.cfg.ArchiveCountLimit, p.cfg.DirectCountLimit)

	if guard.LikelyExceeds(pm.DirectCount, pm.ArchiveCount) {
		pm.FileLimitExceeded = true
		metrics.QuotaTrips.Inc()
		p.logger.Warn("estimated file count likely exceeds limit",
			logging.Operation("ingest"),
			logging.Message(msg.Id),
			slog.Int("direct", pm.DirectCount),
			slog.Int("archives", pm.ArchiveCount),
			logging.Status(logging.StatusSkipped))
		for _, c := range candidates {
			pm.Results = append(pm.Results, skippedResult(c, SkipReasonPreflightLimit))
		}
		metrics.AttachmentsSkipped.Add(float64(len(candidates)))
		return pm
	}

	limitHit := false
	for _, candidate := range candidates {
		if limitHit {
			pm.Results = append(pm.Results, skippedResult(candidate, SkipReasonRunningLimit))
			metrics.AttachmentsSkipped.Inc()
			continue
		}

		if archive.IsArchive(candidate.Filename) {
			limitHit = p.processArchive(ctx, pm, guard, candidate, dir)
			continue
		}

		if !guard.Admit() {
			limitHit = true
			pm.Results = append(pm.Results, skippedResult(candidate, SkipReasonRunningLimit))
			metrics.AttachmentsSkipped.Inc()
			continue
		}

		path, err := p.download(ctx, candidate, dir)
		if err != nil {
			pm.Results = append(pm.Results, errorResult(candidate, err))
			metrics.AttachmentsErrored.Inc()
			continue
		}
		candidate.Path = path
		p.runExtraction(ctx, pm, candidate)
	}

	if limitHit {
		pm.FileLimitExceeded = true
		metrics.QuotaTrips.Inc()
	}

	return pm
}

// processArchive downloads and expands one archive candidate and runs
// extraction over its members. Returns true once the file budget ran out,
// in which case the unprocessed members were already marked skipped.
func (p *Processor) processArchive(ctx context.Context, pm *ProcessedMessage, guard *Guard, candidate Candidate, dir string) bool {
	path, err := p.download(ctx, candidate, dir)
	if err != nil {
		pm.Results = append(pm.Results, errorResult(candidate, err))
		metrics.AttachmentsErrored.Inc()
		return false
	}

	members, err := p.expander.Expand(ctx, path, dir)
	if err != nil {
		pm.Results = append(pm.Results, errorResult(candidate, err))
		metrics.AttachmentsErrored.Inc()
		return false
	}
	metrics.ArchivesExpanded.Inc()

	limitHit := false
	for _, member := range members {
		memberCandidate := Candidate{
			Filename: filepath.Base(member),
			Path:     member,
			Origin:   OriginArchiveMember,
			SourceID: candidate.Filename,
		}

		if limitHit || !guard.Admit() {
			limitHit = true
			pm.Results = append(pm.Results, skippedResult(memberCandidate, SkipReasonRunningLimit))
			metrics.AttachmentsSkipped.Inc()
			continue
		}

		p.runExtraction(ctx, pm, memberCandidate)
	}

	return limitHit
}

func (p *Processor) runExtraction(ctx context.Context, pm *ProcessedMessage, candidate Candidate) {
	result := p.docs.Process(ctx, candidate)
	pm.Results = append(pm.Results, result)

	switch result.Status {
	case StatusProcessed:
		pm.ProcessedCount++
		metrics.AttachmentsProcessed.Inc()
	case StatusSkipped:
		metrics.AttachmentsSkipped.Inc()
	case StatusError:
		metrics.AttachmentsErrored.Inc()
		p.logger.Error("extraction failed",
			logging.Operation("classify"),
			logging.Message(pm.MessageID),
			logging.File(candidate.Filename),
			slog.String("reason", result.Error),
			logging.Status(logging.StatusError))
	}
}

// download materializes a candidate's payload in dir and returns the
// written path. Colliding filenames get a random suffix so two
// attachments sharing a name both survive.
func (p *Processor) download(ctx context.Context, candidate Candidate, dir string) (string, error) {
	var data []byte
	var err error

	switch {
	case candidate.Data != nil:
		data = candidate.Data
	case candidate.Origin == OriginDriveLink:
		data, err = p.folders.DownloadFile(ctx, candidate.SourceID)
	default:
		data, err = p.mail.Attachment(ctx, candidate.MessageID, candidate.SourceID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", candidate.Filename, err)
	}

	path := filepath.Join(dir, candidate.Filename)
	if _, statErr := os.Stat(path); statErr == nil {
		path = filepath.Join(dir, suffixedName(candidate.Filename))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", candidate.Filename, err)
	}

	return path, nil
}

func skippedResult(candidate Candidate, reason string) Result {
	return Result{
		Candidate:  candidate,
		Status:     StatusSkipped,
		SkipReason: reason,
		Record:     &ExtractionRecord{},
	}
}

// suffixedName appends a short random suffix before the extension.
func suffixedName(name string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%s%s", name[:len(name)-len(ext)], hex.EncodeToString(buf), ext)
}
