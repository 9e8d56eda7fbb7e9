package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/corpusqa/internal/adapters/driven/storage/memory"
	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

func TestRetrieve_EmptyStore(t *testing.T) {
	store := memory.NewStore()
	r := NewRetriever(&mockEmbedder{dim: 4}, store, 4, 6)

	got, err := r.Retrieve(context.Background(), "anything", 6)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_OrderedAndBounded(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		vec := []float32{float32(i), 0, 0, 0}
		_, err := store.Insert(ctx, "chunk", domain.Metadata{ChunkIndex: i}, vec)
		require.NoError(t, err)
	}

	r := NewRetriever(&mockEmbedder{dim: 4}, store, 4, 6)
	got, err := r.Retrieve(ctx, "query", 6)
	require.NoError(t, err)

	assert.Len(t, got, 6, "length is min(k, records in store)")
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestRetrieve_DefaultK(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Insert(ctx, "chunk", domain.Metadata{ChunkIndex: i}, []float32{float32(i), 0, 0, 0})
		require.NoError(t, err)
	}

	r := NewRetriever(&mockEmbedder{dim: 4}, store, 4, 3)
	got, err := r.Retrieve(ctx, "query", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r := NewRetriever(&mockEmbedder{dim: 4}, memory.NewStore(), 4, 6)

	_, err := r.Retrieve(context.Background(), "   ", 6)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	// Embedder produces 512-wide vectors while the store is configured for 1536.
	r := NewRetriever(&mockEmbedder{dim: 512}, memory.NewStore(), 1536, 6)

	_, err := r.Retrieve(context.Background(), "query", 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestRetrieve_EmbedError(t *testing.T) {
	embedder := &mockEmbedder{dim: 4, embedErr: errors.New("timeout")}
	r := NewRetriever(embedder, memory.NewStore(), 4, 6)

	_, err := r.Retrieve(context.Background(), "query", 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestRetrieve_StoreError(t *testing.T) {
	r := NewRetriever(&mockEmbedder{dim: 4}, &failingStore{insertErr: errors.New("down")}, 4, 6)

	_, err := r.Retrieve(context.Background(), "query", 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStore))
}
