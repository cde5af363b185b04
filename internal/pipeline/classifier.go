package pipeline

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sangtrankt98/invoice-collection/internal/logging"
	"github.com/sangtrankt98/invoice-collection/internal/pdf"
)

// DocKind is the closed set of document types the pipeline understands.
type DocKind int

const (
	KindUnsupported DocKind = iota
	KindPDF
	KindImage
	KindXML
)

// Classify maps a filename to its document kind by extension.
func Classify(filename string) DocKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp":
		return KindImage
	case ".xml":
		return KindXML
	default:
		return KindUnsupported
	}
}

// DocProcessor classifies a file, runs the matching extraction strategy
// and normalizes the outcome. The PDF helpers are exposed as fields so
// tests can substitute them without rendering real documents.
type DocProcessor struct {
	extractor Extractor
	logger    *slog.Logger

	PDFText   func(path string) (string, error)
	RenderPDF func(path string) ([]byte, error)
}

// NewDocProcessor creates a DocProcessor backed by the given extractor.
func NewDocProcessor(extractor Extractor, logger *slog.Logger) *DocProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocProcessor{
		extractor: extractor,
		logger:    logger,
		PDFText:   pdf.ExtractText,
		RenderPDF: pdf.RenderToJPEG,
	}
}

// Process runs extraction for one file and fills in the result fields on
// the given candidate. The returned result always carries a complete
// record; extraction failures surface on the Error field, never as a
// panic or a missing row.
func (p *DocProcessor) Process(ctx context.Context, candidate Candidate) Result {
	result := Result{Candidate: candidate, Record: &ExtractionRecord{}}

	record, err := p.extract(ctx, candidate.Path, Classify(candidate.Filename))
	if err != nil {
		if errors.Is(err, errUnsupported) {
			result.Status = StatusSkipped
			result.SkipReason = SkipReasonUnsupported
			return result
		}
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusProcessed
	result.Record = Normalize(record)
	result.RenamedPath = p.rename(candidate.Path, result.Record)
	return result
}

var errUnsupported = errors.New("unsupported document type")

func (p *DocProcessor) extract(ctx context.Context, path string, kind DocKind) (*ExtractionRecord, error) {
	switch kind {
	case KindPDF:
		return p.extractPDF(ctx, path)
	case KindImage:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return p.extractor.ExtractFromImage(ctx, data)
	case KindXML:
		outline, err := xmlOutline(path)
		if err != nil {
			return nil, err
		}
		return p.extractor.ExtractFromText(ctx, outline)
	default:
		return nil, errUnsupported
	}
}

// extractPDF tries the text layer first and falls back to rendering the
// document into a single image when the text layer is missing or too
// thin to be useful.
func (p *DocProcessor) extractPDF(ctx context.Context, path string) (*ExtractionRecord, error) {
	text, err := p.PDFText(path)
	if err == nil && text != "" {
		return p.extractor.ExtractFromText(ctx, text)
	}
	if err != nil {
		p.logger.Warn("pdf text layer unavailable, rendering pages",
			logging.Operation("classify"),
			logging.File(filepath.Base(path)),
			logging.Err(err))
	}

	image, err := p.RenderPDF(path)
	if err != nil {
		return nil, fmt.Errorf("pdf has no text layer and rendering failed: %w", err)
	}
	return p.extractor.ExtractFromImage(ctx, image)
}

// Normalize fills a partial record so every field is present. Nil input
// yields an all-null record; set fields, including numeric zeros, pass
// through untouched.
func Normalize(record *ExtractionRecord) *ExtractionRecord {
	if record == nil {
		return &ExtractionRecord{}
	}
	return record
}

// rename moves an extracted file to {date}_{documentNumber}.{ext} when a
// document number was extracted. An existing target is never overwritten;
// the collision is logged and the file keeps its name. Returns the new
// path, or empty when no rename happened.
func (p *DocProcessor) rename(path string, record *ExtractionRecord) string {
	if record.DocumentNumber == nil || *record.DocumentNumber == "" {
		return ""
	}

	name := *record.DocumentNumber
	if record.Date != nil && *record.Date != "" {
		name = *record.Date + "_" + name
	}
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)

	target := filepath.Join(filepath.Dir(path), name+filepath.Ext(path))
	if target == path {
		return ""
	}

	if _, err := os.Stat(target); err == nil {
		p.logger.Warn("rename target exists, keeping original name",
			logging.Operation("classify"),
			logging.File(filepath.Base(path)),
			slog.String("target", filepath.Base(target)),
			logging.Status(logging.StatusSkipped))
		return ""
	}

	if err := os.Rename(path, target); err != nil {
		p.logger.Warn("failed to rename extracted file",
			logging.Operation("classify"),
			logging.File(filepath.Base(path)),
			logging.Err(err))
		return ""
	}

	return target
}

// xmlOutline flattens an XML document into an indented tag/text outline
// suitable for text extraction.
func xmlOutline(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open xml: %w", err)
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	var sb strings.Builder
	depth := 0

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.Repeat("  ", depth))
			sb.WriteString(t.Name.Local)
			sb.WriteString(":")
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" {
				sb.WriteString(" ")
				sb.WriteString(text)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
