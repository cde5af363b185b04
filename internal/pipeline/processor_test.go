package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/sangtrankt98/invoice-collection/internal/drive"
)

type fakeMail struct {
	threads     map[string]*gmailapi.Thread
	attachments map[string][]byte

	attachmentCalls int
}

func (f *fakeMail) ListThreads(_ context.Context, _ string, _ int64) ([]*gmailapi.Thread, error) {
	var stubs []*gmailapi.Thread
	for id := range f.threads {
		stubs = append(stubs, &gmailapi.Thread{Id: id})
	}
	return stubs, nil
}

func (f *fakeMail) GetThread(_ context.Context, threadID string) (*gmailapi.Thread, error) {
	thread, ok := f.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("unknown thread %s", threadID)
	}
	return thread, nil
}

func (f *fakeMail) Attachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	f.attachmentCalls++
	data, ok := f.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, fmt.Errorf("unknown attachment %s", attachmentID)
	}
	return data, nil
}

type fakeFolders struct {
	files   map[string]*drive.FileInfo
	entries map[string][]*drive.FileInfo
	content map[string][]byte
}

func (f *fakeFolders) GetFile(_ context.Context, fileID string) (*drive.FileInfo, error) {
	info, ok := f.files[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown file %s", fileID)
	}
	return info, nil
}

func (f *fakeFolders) ListFolder(_ context.Context, folderID string) ([]*drive.FileInfo, error) {
	return f.entries[folderID], nil
}

func (f *fakeFolders) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	data, ok := f.content[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown file %s", fileID)
	}
	return data, nil
}

func attachmentPart(filename, attachmentID string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		Filename: filename,
		MimeType: "application/octet-stream",
		Body:     &gmailapi.MessagePartBody{AttachmentId: attachmentID},
	}
}

func zipWith(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestProcessor(t *testing.T, mail MailSource, folders FolderSource, extractor Extractor, maxFiles int) *Processor {
	t.Helper()

	docs := NewDocProcessor(extractor, nil)
	docs.PDFText = func(string) (string, error) { return "document text", nil }
	docs.RenderPDF = func(string) ([]byte, error) { return []byte("rendered"), nil }

	return NewProcessor(mail, folders, docs, nil, nil, Config{
		DownloadDir:        t.TempDir(),
		MaxFilesPerMessage: maxFiles,
	})
}

func TestIngestEndToEnd(t *testing.T) {
	bundle := zipWith(t, map[string][]byte{
		"a.pdf": []byte("inner pdf"),
		"b.jpg": []byte("inner jpg"),
	})

	mail := &fakeMail{
		threads: map[string]*gmailapi.Thread{
			"t1": {Id: "t1", Messages: []*gmailapi.Message{{
				Id:           "m1",
				InternalDate: time.Now().UnixMilli(),
				Payload: &gmailapi.MessagePart{
					MimeType: "multipart/mixed",
					Headers: []*gmailapi.MessagePartHeader{
						{Name: "Subject", Value: "August invoices"},
						{Name: "From", Value: "billing@example.com"},
					},
					Parts: []*gmailapi.MessagePart{
						attachmentPart("invoice.pdf", "att1"),
						attachmentPart("bundle.zip", "att2"),
					},
				},
			}}},
		},
		attachments: map[string][]byte{
			"m1/att1": []byte("pdf payload"),
			"m1/att2": bundle,
		},
	}

	extractor := &fakeExtractor{record: &ExtractionRecord{}}
	p := newTestProcessor(t, mail, &fakeFolders{}, extractor, 50)

	processed, err := p.Ingest(context.Background(), "has:attachment", nil, 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	pm := processed[0]
	assert.Equal(t, "t1", pm.ThreadID)
	assert.Equal(t, "m1", pm.MessageID)
	assert.Equal(t, "August invoices", pm.Subject)
	assert.Equal(t, 2, pm.DirectCount)
	assert.Equal(t, 1, pm.ArchiveCount)
	assert.False(t, pm.FileLimitExceeded)
	assert.Equal(t, 3, pm.ProcessedCount)

	require.Len(t, pm.Results, 3)
	names := make(map[string]ResultStatus)
	for _, r := range pm.Results {
		names[r.Candidate.Filename] = r.Status
		require.NotNil(t, r.Record, "schema completeness: every result carries a record")
	}
	assert.Equal(t, StatusProcessed, names["invoice.pdf"])
	assert.Equal(t, StatusProcessed, names["a.pdf"])
	assert.Equal(t, StatusProcessed, names["b.jpg"])
}

func TestIngestQuotaPreflight(t *testing.T) {
	parts := make([]*gmailapi.MessagePart, 0, 6)
	for i := 0; i < 6; i++ {
		parts = append(parts, attachmentPart(fmt.Sprintf("bundle%d.zip", i), fmt.Sprintf("att%d", i)))
	}

	mail := &fakeMail{
		threads: map[string]*gmailapi.Thread{
			"t1": {Id: "t1", Messages: []*gmailapi.Message{{
				Id:           "m1",
				InternalDate: time.Now().UnixMilli(),
				Payload:      &gmailapi.MessagePart{MimeType: "multipart/mixed", Parts: parts},
			}}},
		},
	}

	p := newTestProcessor(t, mail, &fakeFolders{}, &fakeExtractor{record: &ExtractionRecord{}}, 50)

	processed, err := p.Ingest(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	pm := processed[0]
	assert.True(t, pm.FileLimitExceeded)
	assert.Equal(t, 6, pm.ArchiveCount)
	require.Len(t, pm.Results, 6)
	for _, r := range pm.Results {
		assert.Equal(t, StatusSkipped, r.Status)
		assert.Equal(t, SkipReasonPreflightLimit, r.SkipReason)
		require.NotNil(t, r.Record)
	}
	assert.Zero(t, mail.attachmentCalls, "pre-flight rejection must not download anything")
}

func TestIngestQuotaRunningCutoff(t *testing.T) {
	entries := make(map[string][]byte, 10)
	for i := 0; i < 10; i++ {
		entries[fmt.Sprintf("doc%d.pdf", i)] = []byte("pdf")
	}
	bundle := zipWith(t, entries)

	mail := &fakeMail{
		threads: map[string]*gmailapi.Thread{
			"t1": {Id: "t1", Messages: []*gmailapi.Message{{
				Id:           "m1",
				InternalDate: time.Now().UnixMilli(),
				Payload: &gmailapi.MessagePart{
					MimeType: "multipart/mixed",
					Parts:    []*gmailapi.MessagePart{attachmentPart("bundle.zip", "att1")},
				},
			}}},
		},
		attachments: map[string][]byte{"m1/att1": bundle},
	}

	p := newTestProcessor(t, mail, &fakeFolders{}, &fakeExtractor{record: &ExtractionRecord{}}, 5)

	processed, err := p.Ingest(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	pm := processed[0]
	assert.True(t, pm.FileLimitExceeded)
	assert.Equal(t, 5, pm.ProcessedCount)

	var processedCount, skippedCount int
	for _, r := range pm.Results {
		switch r.Status {
		case StatusProcessed:
			processedCount++
		case StatusSkipped:
			skippedCount++
			assert.Equal(t, SkipReasonRunningLimit, r.SkipReason)
		}
	}
	assert.Equal(t, 5, processedCount)
	assert.Equal(t, 5, skippedCount)
}

func TestIngestDriveFolderLink(t *testing.T) {
	body := base64.RawURLEncoding.EncodeToString(
		[]byte("Documents: https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012"))

	mail := &fakeMail{
		threads: map[string]*gmailapi.Thread{
			"t1": {Id: "t1", Messages: []*gmailapi.Message{{
				Id:           "m1",
				InternalDate: time.Now().UnixMilli(),
				Payload: &gmailapi.MessagePart{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: body},
				},
			}}},
		},
	}

	folders := &fakeFolders{
		files: map[string]*drive.FileInfo{
			"1AbCdEfGhIjKlMnOpQrStUvWxYz012": {
				ID:       "1AbCdEfGhIjKlMnOpQrStUvWxYz012",
				Name:     "invoices",
				MimeType: drive.FolderMimeType,
			},
		},
		entries: map[string][]*drive.FileInfo{
			"1AbCdEfGhIjKlMnOpQrStUvWxYz012": {
				{ID: "f1", Name: "linked.pdf", MimeType: "application/pdf"},
			},
		},
		content: map[string][]byte{"f1": []byte("drive pdf")},
	}

	p := newTestProcessor(t, mail, folders, &fakeExtractor{record: &ExtractionRecord{}}, 50)

	processed, err := p.Ingest(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	pm := processed[0]
	require.Len(t, pm.Results, 1)
	assert.Equal(t, "linked.pdf", pm.Results[0].Candidate.Filename)
	assert.Equal(t, OriginDriveLink, pm.Results[0].Candidate.Origin)
	assert.Equal(t, StatusProcessed, pm.Results[0].Status)
}

func TestIngestDownloadFailureIsLocal(t *testing.T) {
	mail := &fakeMail{
		threads: map[string]*gmailapi.Thread{
			"t1": {Id: "t1", Messages: []*gmailapi.Message{{
				Id:           "m1",
				InternalDate: time.Now().UnixMilli(),
				Payload: &gmailapi.MessagePart{
					MimeType: "multipart/mixed",
					Parts: []*gmailapi.MessagePart{
						attachmentPart("broken.pdf", "missing"),
						attachmentPart("good.pdf", "att1"),
					},
				},
			}}},
		},
		attachments: map[string][]byte{"m1/att1": []byte("pdf payload")},
	}

	p := newTestProcessor(t, mail, &fakeFolders{}, &fakeExtractor{record: &ExtractionRecord{}}, 50)

	processed, err := p.Ingest(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	pm := processed[0]
	require.Len(t, pm.Results, 2)

	byName := make(map[string]Result)
	for _, r := range pm.Results {
		byName[r.Candidate.Filename] = r
	}
	assert.Equal(t, StatusError, byName["broken.pdf"].Status)
	assert.NotEmpty(t, byName["broken.pdf"].Error)
	assert.Equal(t, StatusProcessed, byName["good.pdf"].Status)
}
