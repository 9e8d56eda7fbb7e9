package services

import (
	"context"
	"io"
	"sync"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
// It returns deterministic vectors of a fixed dimension.
type mockEmbedder struct {
	mu       sync.Mutex
	dim      int
	embedErr error
	calls    int
	// failAfter makes Embed fail once this many calls succeeded (0 = never).
	failAfter int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failAfter > 0 && m.calls > m.failAfter {
		return nil, io.ErrUnexpectedEOF
	}

	vec := make([]float32, m.dim)
	for i := range vec {
		vec[i] = float32(len(text)%7) + float32(i)
	}
	return vec, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dim }

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// failingStore implements driven.VectorStore and fails every write.
type failingStore struct {
	insertErr error
}

func (f *failingStore) Insert(context.Context, string, domain.Metadata, []float32) (string, error) {
	return "", f.insertErr
}

func (f *failingStore) Search(context.Context, []float32, int) ([]domain.RetrievedSource, error) {
	return nil, f.insertErr
}

func (f *failingStore) GetDocument(context.Context, string) (*domain.Record, error) {
	return nil, f.insertErr
}

func (f *failingStore) Close() error { return nil }

// mockStream implements driven.TokenStream over a fixed fragment list.
type mockStream struct {
	mu        sync.Mutex
	fragments []string
	pos       int
	finalErr  error // returned after fragments run out; nil means io.EOF
	closed    bool
	recvs     int
	// gate, when non-nil, blocks each Recv until a value is sent.
	gate chan struct{}
}

func (m *mockStream) Recv() (string, error) {
	if m.gate != nil {
		if _, ok := <-m.gate; !ok {
			return "", io.ErrClosedPipe
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.recvs++
	if m.pos >= len(m.fragments) {
		if m.finalErr != nil {
			return "", m.finalErr
		}
		return "", io.EOF
	}
	frag := m.fragments[m.pos]
	m.pos++
	return frag, nil
}

func (m *mockStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockStream) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockStream) recvCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recvs
}

// mockGenerator implements driven.GenerationService returning a canned stream.
type mockGenerator struct {
	stream   *mockStream
	startErr error
}

func (m *mockGenerator) Stream(context.Context, string, string) (driven.TokenStream, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.stream, nil
}

func (m *mockGenerator) ModelName() string { return "mock-llm" }

func (m *mockGenerator) Ping(context.Context) error { return nil }

func (m *mockGenerator) Close() error { return nil }
