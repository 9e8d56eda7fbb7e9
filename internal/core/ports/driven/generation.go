package driven

import "context"

// GenerationService drives a generative language model in streaming mode.
//
// Implementations may include:
//   - OpenAI chat completions (gpt-4o, gpt-4o-mini)
//   - Any OpenAI-compatible inference server
type GenerationService interface {
	// Stream starts a streaming completion with the given system and user
	// prompts and returns the incremental token stream. The stream is
	// single-consumer and forward-only.
	Stream(ctx context.Context, systemPrompt, userPrompt string) (TokenStream, error)

	// ModelName returns the name of the generative model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TokenStream is a finite, forward-only sequence of text fragments.
// Recv blocks until the next fragment arrives, returning io.EOF when the
// model signals completion and any other error on mid-stream failure.
// Fragments may be empty; consumers filter those out.
type TokenStream interface {
	// Recv returns the next text fragment.
	Recv() (string, error)

	// Close releases the underlying model-stream resource. It is safe to
	// call Close while a Recv is blocked and after Recv returned an error.
	Close() error
}
