package drive

import (
	"context"
	"fmt"
	"io"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/sangtrankt98/invoice-collection/internal/google"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"

	// MaxDownloadSize bounds Drive file downloads (100MB).
	MaxDownloadSize = 100 * 1024 * 1024
)

// Client wraps the Google Drive API service.
type Client struct {
	service *drive.Service
}

// NewClient creates a new Google Drive client with OAuth2 authentication.
// Returns an error if no valid cached token exists - run the auth command first.
func NewClient(ctx context.Context, creds google.Credentials) (*Client, error) {
	httpClient, err := google.GetHTTPClient(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{service: service}, nil
}

// GetFile retrieves metadata for a specific file or folder.
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	file, err := c.service.Files.Get(fileID).
		Context(ctx).
		Fields("id, name, mimeType, size, createdTime, modifiedTime, trashed").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}

	return convertToFileInfo(file), nil
}

// ListFolder lists the non-trashed files directly inside a folder.
// Folders nested inside the listed folder are returned as entries too;
// the caller decides whether to descend.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]*FileInfo, error) {
	if folderID == "" {
		return nil, fmt.Errorf("folderID is required")
	}

	var files []*FileInfo
	pageToken := ""

	for {
		call := c.service.Files.List().
			Context(ctx).
			Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
			Fields("nextPageToken, files(id, name, mimeType, size, createdTime, modifiedTime, trashed)").
			PageSize(100)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
		}

		for _, f := range fileList.Files {
			files = append(files, convertToFileInfo(f))
		}

		if fileList.NextPageToken == "" {
			break
		}
		pageToken = fileList.NextPageToken
	}

	return files, nil
}

// DownloadFile downloads the content of a file. Files larger than
// MaxDownloadSize are rejected before any bytes are transferred.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	meta, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if meta.Size > MaxDownloadSize {
		return nil, fmt.Errorf("file %s size %d exceeds maximum size %d", fileID, meta.Size, MaxDownloadSize)
	}

	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if int64(len(data)) > MaxDownloadSize {
		return nil, fmt.Errorf("file %s exceeds maximum size %d", fileID, MaxDownloadSize)
	}

	return data, nil
}

// convertToFileInfo converts a Drive API File to our FileInfo type.
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		Trashed:  f.Trashed,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			fileInfo.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			fileInfo.ModifiedTime = t
		}
	}

	return fileInfo
}
