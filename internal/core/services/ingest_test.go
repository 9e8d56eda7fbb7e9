package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/corpusqa/internal/adapters/driven/storage/memory"
	"github.com/parchment-labs/corpusqa/internal/chunker"
	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driving"
)

func newTestIngestor(t *testing.T, dim int, store *memory.Store) (*Ingestor, *mockEmbedder) {
	t.Helper()
	embedder := &mockEmbedder{dim: dim}
	ing, err := NewIngestor(embedder, store, IngestorOptions{
		VectorDim:     dim,
		TargetTokens:  800,
		OverlapTokens: 150,
	})
	require.NoError(t, err)
	return ing, embedder
}

func TestNewIngestor_RejectsBadChunking(t *testing.T) {
	store := memory.NewStore()
	embedder := &mockEmbedder{dim: 4}

	_, err := NewIngestor(embedder, store, IngestorOptions{
		VectorDim:     4,
		TargetTokens:  100,
		OverlapTokens: 100,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = NewIngestor(embedder, store, IngestorOptions{
		VectorDim:     0,
		TargetTokens:  800,
		OverlapTokens: 150,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestIngest_SingleDocument(t *testing.T) {
	store := memory.NewStore()
	ing, _ := newTestIngestor(t, 8, store)

	// 10,000 characters named after a year.
	text := strings.Repeat("abcdefghij", 1000)
	docs := []driving.SourceDocument{{Filename: "1999letter.pdf", Text: text}}

	progress, err := ing.Ingest(context.Background(), docs, nil)
	require.NoError(t, err)

	records := store.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, len(records), progress.TotalChunks)
	assert.Equal(t, len(records), progress.ChunksProcessed)

	maxChars := 800 * chunker.CharsPerToken
	for i, rec := range records {
		assert.Equal(t, "1999letter.pdf", rec.Metadata.Filename)
		require.NotNil(t, rec.Metadata.Year)
		assert.Equal(t, 1999, *rec.Metadata.Year)
		// chunk_index is contiguous from 0 in insertion order.
		assert.Equal(t, i, rec.Metadata.ChunkIndex)
		assert.LessOrEqual(t, len(rec.Text), maxChars)
		if i < len(records)-1 {
			assert.Equal(t, maxChars, len(rec.Text))
		}
	}
}

func TestIngest_NoYearInFilename(t *testing.T) {
	store := memory.NewStore()
	ing, _ := newTestIngestor(t, 4, store)

	_, err := ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "notes.txt", Text: "short document"},
	}, nil)
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Metadata.Year)
}

func TestIngest_CleansTextBeforeChunking(t *testing.T) {
	store := memory.NewStore()
	ing, _ := newTestIngestor(t, 4, store)

	_, err := ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "doc.txt", Text: "  page one\fpage two\n\n\n\nend\t "},
	}, nil)
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "page one\npage two\n\nend", records[0].Text)
}

func TestIngest_DimensionMismatchAborts(t *testing.T) {
	store := memory.NewStore()
	embedder := &mockEmbedder{dim: 512}
	ing, err := NewIngestor(embedder, store, IngestorOptions{
		VectorDim:     1536,
		TargetTokens:  800,
		OverlapTokens: 150,
	})
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "doc.txt", Text: "some text"},
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig), "dimension drift is a configuration error: %v", err)
	assert.Equal(t, 0, store.Len(), "no record may be written for a mismatched chunk")
}

func TestIngest_EmbedErrorFailsFast(t *testing.T) {
	store := memory.NewStore()
	embedder := &mockEmbedder{dim: 4, failAfter: 3}
	ing, err := NewIngestor(embedder, store, IngestorOptions{
		VectorDim:     4,
		TargetTokens:  10,
		OverlapTokens: 2,
	})
	require.NoError(t, err)

	// Long enough for well over three chunks.
	text := strings.Repeat("z", 500)
	progress, err := ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "doc.txt", Text: text},
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Equal(t, 3, store.Len(), "run stops at the first failure")
	assert.Equal(t, 3, progress.ChunksProcessed)
}

func TestIngest_StoreErrorFailsFast(t *testing.T) {
	embedder := &mockEmbedder{dim: 4}
	ing, err := NewIngestor(embedder, &failingStore{insertErr: errors.New("connection refused")}, IngestorOptions{
		VectorDim:     4,
		TargetTokens:  800,
		OverlapTokens: 150,
	})
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "doc.txt", Text: "some text"},
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStore))
}

func TestIngest_ProgressUpdates(t *testing.T) {
	store := memory.NewStore()
	embedder := &mockEmbedder{dim: 4}
	ing, err := NewIngestor(embedder, store, IngestorOptions{
		VectorDim:     4,
		TargetTokens:  10,
		OverlapTokens: 0,
	})
	require.NoError(t, err)

	// 1000 chars / 40 chars per chunk = 25 chunks.
	text := strings.Repeat("y", 1000)

	var updates []domain.IngestionProgress
	_, err = ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "doc.txt", Text: text},
	}, func(p domain.IngestionProgress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)

	// Updates at 10, 20 and the final one at 25.
	require.Len(t, updates, 3)
	assert.Equal(t, 10, updates[0].ChunksProcessed)
	assert.Equal(t, 20, updates[1].ChunksProcessed)
	assert.Equal(t, 25, updates[2].ChunksProcessed)
	for _, u := range updates {
		assert.Equal(t, 25, u.TotalChunks, "total is known from the first update")
		assert.Equal(t, "doc.txt", u.CurrentFile)
	}
}

func TestIngest_Cancellation(t *testing.T) {
	store := memory.NewStore()
	ing, _ := newTestIngestor(t, 4, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ing.Ingest(ctx, []driving.SourceDocument{
		{Filename: "doc.txt", Text: "some text"},
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestIngest_EmptyDocumentProducesNoRecords(t *testing.T) {
	store := memory.NewStore()
	ing, embedder := newTestIngestor(t, 4, store)

	progress, err := ing.Ingest(context.Background(), []driving.SourceDocument{
		{Filename: "empty.txt", Text: "   \n\n  "},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, progress.TotalChunks)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, embedder.callCount())
}
