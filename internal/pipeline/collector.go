package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/sangtrankt98/invoice-collection/internal/drive"
	"github.com/sangtrankt98/invoice-collection/internal/gmail"
	"github.com/sangtrankt98/invoice-collection/internal/logging"
)

// collectCandidates discovers everything attached to a message: direct
// attachments from the MIME part tree plus files behind Drive links in
// the body. No payload is downloaded here; candidates carry just enough
// metadata for the quota pre-flight, and a link that fails to resolve
// becomes an error result rather than aborting the message.
func collectCandidates(ctx context.Context, folders FolderSource, msg *gmailapi.Message, logger *slog.Logger) ([]Candidate, []Result) {
	var candidates []Candidate
	var failures []Result

	gmail.WalkParts(msg.Payload, func(part *gmailapi.MessagePart) {
		if part.Filename == "" || part.Body == nil {
			return
		}
		if part.Body.AttachmentId == "" && part.Body.Data == "" {
			return
		}

		candidate := Candidate{
			Filename:  gmail.SanitizeFilename(part.Filename),
			MimeType:  part.MimeType,
			Origin:    OriginDirect,
			SourceID:  part.Body.AttachmentId,
			MessageID: msg.Id,
		}
		if part.Body.AttachmentId == "" {
			// Small attachments arrive inline instead of by reference.
			data, err := gmail.DecodeBody(part.Body.Data)
			if err != nil {
				failures = append(failures, errorResult(candidate, fmt.Errorf("failed to decode inline attachment: %w", err)))
				return
			}
			candidate.Data = data
		}
		candidates = append(candidates, candidate)
	})

	body := gmail.MessageBody(msg)
	for _, link := range drive.ExtractLinks(body) {
		resolved, err := resolveLink(ctx, folders, link)
		if err != nil {
			logger.Error("failed to resolve drive link",
				logging.Operation("collect"),
				logging.Message(msg.Id),
				slog.String("drive_id", link.ID),
				logging.Err(err),
				logging.Status(logging.StatusError))
			failures = append(failures, errorResult(Candidate{
				Filename: link.ID,
				Origin:   OriginDriveLink,
				SourceID: link.ID,
			}, err))
			continue
		}
		candidates = append(candidates, resolved...)
	}

	return candidates, failures
}

// resolveLink turns one Drive reference into candidates. Folder links
// contribute every non-folder entry of the folder; file links contribute
// themselves. Subfolders are not descended into.
func resolveLink(ctx context.Context, folders FolderSource, link drive.LinkRef) ([]Candidate, error) {
	meta, err := folders.GetFile(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	if !meta.IsFolder() {
		return []Candidate{{
			Filename: gmail.SanitizeFilename(meta.Name),
			MimeType: meta.MimeType,
			Origin:   OriginDriveLink,
			SourceID: meta.ID,
		}}, nil
	}

	entries, err := folders.ListFolder(ctx, meta.ID)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.IsFolder() {
			continue
		}
		candidates = append(candidates, Candidate{
			Filename: gmail.SanitizeFilename(entry.Name),
			MimeType: entry.MimeType,
			Origin:   OriginDriveLink,
			SourceID: entry.ID,
		})
	}
	return candidates, nil
}

func errorResult(candidate Candidate, err error) Result {
	return Result{
		Candidate: candidate,
		Status:    StatusError,
		Error:     err.Error(),
		Record:    &ExtractionRecord{},
	}
}
