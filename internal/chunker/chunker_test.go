package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

func TestValidate(t *testing.T) {
	t.Run("accepts sane parameters", func(t *testing.T) {
		if err := Validate(800, 150); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects zero target", func(t *testing.T) {
		if err := Validate(0, 0); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("rejects negative overlap", func(t *testing.T) {
		if err := Validate(100, -1); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("rejects overlap >= target", func(t *testing.T) {
		if err := Validate(100, 100); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for equal overlap, got %v", err)
		}
		if err := Validate(100, 150); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for larger overlap, got %v", err)
		}
	})
}

func TestSplit_Empty(t *testing.T) {
	chunks, err := Split("", 800, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty input, got %d", len(chunks))
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	// Input at or under targetTokens*CharsPerToken comes back whole.
	text := strings.Repeat("a", 10*CharsPerToken)
	chunks, err := Split(text, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Error("expected single chunk to equal the whole input")
	}
}

func TestSplit_Coverage(t *testing.T) {
	// Concatenating each chunk's unique (non-overlapping) portion must
	// reconstruct the original text exactly.
	text := "The quick brown fox jumps over the lazy dog. " + strings.Repeat("0123456789", 30)
	target, overlap := 20, 5
	chunks, err := Split(text, target, overlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	overlapChars := overlap * CharsPerToken
	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		rebuilt += c[overlapChars:]
	}
	if rebuilt != text {
		t.Errorf("reconstruction mismatch: got %d chars, want %d", len(rebuilt), len(text))
	}
}

func TestSplit_ChunkSizes(t *testing.T) {
	text := strings.Repeat("x", 10_000)
	chunks, err := Split(text, 800, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	maxChars := 800 * CharsPerToken
	for i, c := range chunks {
		if len(c) == 0 {
			t.Errorf("chunk %d is empty", i)
		}
		if len(c) > maxChars {
			t.Errorf("chunk %d has %d chars, want <= %d", i, len(c), maxChars)
		}
		// All but the last chunk are exactly the target size.
		if i < len(chunks)-1 && len(c) != maxChars {
			t.Errorf("chunk %d has %d chars, want %d", i, len(c), maxChars)
		}
	}
}
