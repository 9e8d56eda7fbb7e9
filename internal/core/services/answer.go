package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driving"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

// Ensure Synthesizer implements the interface.
var _ driving.AnswerService = (*Synthesizer)(nil)

// systemPrompt constrains the model to the retrieved corpus excerpts.
const systemPrompt = `You are an expert research assistant answering questions using only the provided source excerpts from a private document corpus. Answer concisely, cite the year and filename for any quotes, and say you are unsure rather than invent an answer.`

// Synthesizer composes a grounding prompt from retrieved sources and streams
// the model's answer as discrete events with exactly one terminal event.
type Synthesizer struct {
	retriever *Retriever
	generator driven.GenerationService
	k         int
}

// NewSynthesizer creates an answer synthesizer retrieving up to k sources
// per query.
func NewSynthesizer(retriever *Retriever, generator driven.GenerationService, k int) *Synthesizer {
	return &Synthesizer{
		retriever: retriever,
		generator: generator,
		k:         k,
	}
}

// Answer retrieves grounding sources, starts the model stream and returns
// the answer handle. Sources are final before the first event is produced.
// Retrieval and stream-start failures surface here; mid-stream failures
// surface as the terminal error event.
func (s *Synthesizer) Answer(ctx context.Context, query string) (*driving.Answer, error) {
	logger.Section("Answer Synthesis")

	sources, err := s.retriever.Retrieve(ctx, query, s.k)
	if err != nil {
		return nil, err
	}

	stream, err := s.generator.Stream(ctx, systemPrompt, groundingPrompt(sources, query))
	if err != nil {
		return nil, fmt.Errorf("%w: start generation: %v", domain.ErrUpstream, err)
	}

	events := make(chan driving.AnswerEvent)
	go s.pump(ctx, stream, events)

	return &driving.Answer{Sources: sources, Events: events}, nil
}

// pump relays model fragments onto the event channel. It owns the stream:
// on any exit path the stream is closed and the channel is closed after at
// most one terminal event. Every send selects on ctx.Done so a departed
// consumer never wedges the producer.
func (s *Synthesizer) pump(ctx context.Context, stream driven.TokenStream, events chan<- driving.AnswerEvent) {
	defer close(events)
	defer stream.Close()

	for {
		if ctx.Err() != nil {
			logger.Debug("answer stream cancelled: %v", ctx.Err())
			return
		}

		frag, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			s.send(ctx, events, driving.AnswerEvent{Done: true})
			return
		case err != nil:
			if ctx.Err() != nil {
				// Cancellation tears down the underlying stream; the
				// consumer is gone, so no terminal event is owed.
				return
			}
			s.send(ctx, events, driving.AnswerEvent{
				Err: fmt.Errorf("%w: generation stream: %v", domain.ErrUpstream, err),
			})
			return
		}

		if frag == "" {
			continue
		}
		if !s.send(ctx, events, driving.AnswerEvent{Token: frag}) {
			return
		}
	}
}

// send delivers an event unless the context is cancelled first.
func (s *Synthesizer) send(ctx context.Context, events chan<- driving.AnswerEvent, ev driving.AnswerEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// groundingPrompt embeds each source's text tagged with its provenance so
// the model can cite filename, year and chunk position.
func groundingPrompt(sources []domain.RetrievedSource, query string) string {
	var b strings.Builder
	b.WriteString("Use only the provided sources. If unsure, say you don't know.\n\nSOURCES:\n")
	for i, src := range sources {
		year := ""
		if src.Metadata.Year != nil {
			year = fmt.Sprintf(" %d", *src.Metadata.Year)
		}
		fmt.Fprintf(&b, "Source %d (%s%s chunk %d):\n%s\n\n",
			i+1, src.Metadata.Filename, year, src.Metadata.ChunkIndex, src.Text)
	}
	fmt.Fprintf(&b, "QUESTION: %s", query)
	return b.String()
}
