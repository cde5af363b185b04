package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangtrankt98/invoice-collection/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "data", "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveMessageRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	number := "INV-7"
	total := 119.0
	msg := &pipeline.ProcessedMessage{
		ThreadID:     "t1",
		MessageID:    "m1",
		Subject:      "August invoices",
		From:         "billing@example.com",
		InternalDate: time.Now().UTC().Truncate(time.Second),
		Results: []pipeline.Result{
			{
				Candidate: pipeline.Candidate{Filename: "invoice.pdf", Origin: pipeline.OriginDirect},
				Status:    pipeline.StatusProcessed,
				Record: &pipeline.ExtractionRecord{
					DocumentNumber: &number,
					TotalAmount:    &total,
				},
			},
			{
				Candidate:  pipeline.Candidate{Filename: "notes.txt", Origin: pipeline.OriginArchiveMember},
				Status:     pipeline.StatusSkipped,
				SkipReason: pipeline.SkipReasonUnsupported,
				Record:     &pipeline.ExtractionRecord{},
			},
		},
	}

	require.NoError(t, store.SaveMessage(ctx, "", msg))

	rows, err := store.ReportRows(ctx, store.RunID(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "t1", first.ThreadID)
	assert.Equal(t, "invoice.pdf", first.Filename)
	assert.Equal(t, string(pipeline.StatusProcessed), first.Status)
	require.NotNil(t, first.DocumentNumber)
	assert.Equal(t, "INV-7", *first.DocumentNumber)
	require.NotNil(t, first.TotalAmount)
	assert.Equal(t, 119.0, *first.TotalAmount)
	assert.Nil(t, first.EntityName, "absent fields stay null")

	second := rows[1]
	assert.Equal(t, string(pipeline.StatusSkipped), second.Status)
	assert.Equal(t, pipeline.SkipReasonUnsupported, second.SkipReason)
	assert.Nil(t, second.DocumentNumber)
}

func TestReportRowsFiltersByRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	msg := &pipeline.ProcessedMessage{
		ThreadID:  "t1",
		MessageID: "m1",
		Results: []pipeline.Result{{
			Candidate: pipeline.Candidate{Filename: "a.pdf", Origin: pipeline.OriginDirect},
			Status:    pipeline.StatusProcessed,
			Record:    &pipeline.ExtractionRecord{},
		}},
	}
	require.NoError(t, store.SaveMessage(ctx, "run-a", msg))
	require.NoError(t, store.SaveMessage(ctx, "run-b", msg))

	rows, err := store.ReportRows(ctx, "run-a", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	all, err := store.ReportRows(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestThreadLedger(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seen, err := store.WasThreadProcessed(ctx, "t1", 7)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkThreadProcessed(ctx, "t1"))

	seen, err = store.WasThreadProcessed(ctx, "t1", 7)
	require.NoError(t, err)
	assert.True(t, seen)

	// Re-marking refreshes the row instead of failing on the key.
	require.NoError(t, store.MarkThreadProcessed(ctx, "t1"))

	seen, err = store.WasThreadProcessed(ctx, "t2", 7)
	require.NoError(t, err)
	assert.False(t, seen)
}
