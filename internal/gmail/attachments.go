package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	// DefaultMaxAttachmentSize bounds attachment downloads (25MB).
	DefaultMaxAttachmentSize = 25 * 1024 * 1024
)

// Attachment retrieves and decodes the content of an attachment.
func (c *Client) Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	attachment, err := c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if max := c.MaxAttachmentSize(); attachment.Size > max {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, max)
	}

	return DecodeBody(attachment.Data)
}

// DecodeBody decodes Gmail body data. The API uses RFC 4648 base64url
// encoding, usually unpadded; fall back through the padded variants.
func DecodeBody(data string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.StdEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("failed to decode body data: %w", err)
}

// WalkParts recursively walks through message parts.
func WalkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		WalkParts(subpart, fn)
	}
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
