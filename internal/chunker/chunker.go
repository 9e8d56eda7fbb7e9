// Package chunker splits cleaned document text into overlapping fixed-size
// segments. Sizes are expressed in tokens and approximated at a fixed
// character ratio; the same ratio applies to every size-sensitive consumer.
package chunker

import (
	"fmt"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

// CharsPerToken approximates one token as four characters.
const CharsPerToken = 4

// DefaultTargetTokens is the default chunk size in tokens.
const DefaultTargetTokens = 800

// DefaultOverlapTokens is the default overlap between consecutive chunks in tokens.
const DefaultOverlapTokens = 150

// Validate rejects chunking parameters that cannot make forward progress.
// An overlap at or above the target size would produce zero-progress or
// duplicate chunks, so it is a configuration error rather than a clamp.
func Validate(targetTokens, overlapTokens int) error {
	if targetTokens <= 0 {
		return fmt.Errorf("%w: chunk target must be positive, got %d", domain.ErrInvalidConfig, targetTokens)
	}
	if overlapTokens < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidConfig, overlapTokens)
	}
	if overlapTokens >= targetTokens {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk target (%d)",
			domain.ErrInvalidConfig, overlapTokens, targetTokens)
	}
	return nil
}

// Split cuts text into chunks of at most targetTokens, with consecutive
// chunks sharing overlapTokens of trailing/leading text. Deterministic and
// side-effect free; empty input yields no chunks, input at or under the
// target yields exactly one chunk equal to the whole input.
func Split(text string, targetTokens, overlapTokens int) ([]string, error) {
	if err := Validate(targetTokens, overlapTokens); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	targetChars := targetTokens * CharsPerToken
	overlapChars := overlapTokens * CharsPerToken

	chunks := make([]string, 0, len(text)/(targetChars-overlapChars)+1)

	i := 0
	for i < len(text) {
		end := i + targetChars
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
		if end == len(text) {
			break
		}
		i = end - overlapChars
		if i < 0 {
			i = 0
		}
	}

	return chunks, nil
}
