package driving

import (
	"context"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

// AnswerEvent is one item on an answer's event channel. Exactly one of the
// terminal states (Done or Err) is delivered per answer, after which the
// channel is closed. Non-terminal events carry a token.
type AnswerEvent struct {
	// Token is an incremental text fragment. Empty on terminal events.
	Token string

	// Done marks successful completion of the stream.
	Done bool

	// Err marks stream failure. Tokens already delivered remain valid;
	// no further events follow.
	Err error
}

// Terminal reports whether the event ends the stream.
func (e AnswerEvent) Terminal() bool {
	return e.Done || e.Err != nil
}

// Answer is the result of a synthesis call. Sources are resolved before the
// first token is produced and are stable for the lifetime of the call.
// Events is single-consumer and forward-only.
type Answer struct {
	Sources []domain.RetrievedSource
	Events  <-chan AnswerEvent
}

// AnswerService retrieves grounding sources for a query and streams a
// generated answer constrained to those sources.
type AnswerService interface {
	// Answer fails up front (before any event) on retrieval errors.
	// Cancelling ctx stops the producer: it ceases pulling tokens from
	// the generative model and releases the model stream.
	Answer(ctx context.Context, query string) (*Answer, error)
}

// DocumentService looks up stored records by ID.
type DocumentService interface {
	// Get returns domain.ErrNotFound when the ID is absent.
	Get(ctx context.Context, id string) (*domain.Record, error)
}
