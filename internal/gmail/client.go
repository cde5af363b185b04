package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sangtrankt98/invoice-collection/internal/google"
)

// Client wraps the Gmail Users service.
type Client struct {
	svc           *gmail.UsersService
	maxAttachment int64
}

// NewClient creates a new Gmail client with OAuth2 authentication.
// Returns an error if no valid cached token exists - run the auth command first.
func NewClient(ctx context.Context, creds google.Credentials) (*Client, error) {
	httpClient, err := google.GetHTTPClient(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc.Users, maxAttachment: DefaultMaxAttachmentSize}, nil
}

// SetMaxAttachmentSize overrides the attachment download cap. Values of
// zero or less restore the default.
func (c *Client) SetMaxAttachmentSize(n int64) {
	if n <= 0 {
		n = DefaultMaxAttachmentSize
	}
	c.maxAttachment = n
}

// MaxAttachmentSize returns the effective attachment download cap.
func (c *Client) MaxAttachmentSize() int64 {
	if c.maxAttachment <= 0 {
		return DefaultMaxAttachmentSize
	}
	return c.maxAttachment
}

// ListThreads lists threads matching the query with pagination.
// It will fetch up to maxResults thread stubs, making multiple API calls if
// necessary; use GetThread to populate messages.
func (c *Client) ListThreads(ctx context.Context, query string, maxResults int64) ([]*gmail.Thread, error) {
	var allThreads []*gmail.Thread
	pageToken := ""

	for {
		remaining := maxResults - int64(len(allThreads))
		if remaining <= 0 {
			break
		}

		// Gmail caps the page size at 100.
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Threads.List("me").Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list threads: %w", err)
		}

		allThreads = append(allThreads, res.Threads...)

		if res.NextPageToken == "" || int64(len(allThreads)) >= maxResults {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(allThreads)) > maxResults {
		allThreads = allThreads[:maxResults]
	}

	return allThreads, nil
}

// GetThread retrieves a full Gmail thread with all its messages.
func (c *Client) GetThread(ctx context.Context, threadID string) (*gmail.Thread, error) {
	thread, err := c.svc.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return thread, nil
}

// HeaderValue extracts a header value from a Gmail message.
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if mph.Name == header {
			return mph.Value
		}
	}
	return ""
}
