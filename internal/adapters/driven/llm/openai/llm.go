// Package openai provides a streaming generation service adapter using the
// OpenAI chat completions API.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o"
	DefaultPingTimeout = 30 * time.Second
)

// maxLineSize bounds a single SSE line; delta payloads are small but the
// default scanner buffer is not guaranteed to hold one.
const maxLineSize = 1 << 20

// Config holds configuration for the OpenAI generation service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o).
	Model string
}

// GenerationService streams chat completions from the OpenAI API.
// The streaming client carries no overall timeout: a completion stream
// lives as long as the request context allows.
type GenerationService struct {
	client     *http.Client
	pingClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model    string              `json:"model"`
	Messages []chatCompletionMsg `json:"messages"`
	Stream   bool                `json:"stream"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatStreamChunk is one SSE data payload of a streamed completion.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// NewGenerationService creates a new OpenAI generation service.
func NewGenerationService(cfg Config) (*GenerationService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &GenerationService{
		client:     &http.Client{},
		pingClient: &http.Client{Timeout: DefaultPingTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}, nil
}

// Stream starts a streaming completion and returns the token stream.
// Cancelling ctx tears down the HTTP response body, which surfaces as an
// error from the next Recv.
func (s *GenerationService) Stream(ctx context.Context, systemPrompt, userPrompt string) (driven.TokenStream, error) {
	reqBody := chatCompletionRequest{
		Model: s.model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("openai error (status %d)", resp.StatusCode)
		}
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	return &tokenStream{body: resp.Body, scanner: scanner}, nil
}

// ModelName returns the name of the chat model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
func (s *GenerationService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.pingClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *GenerationService) Close() error {
	// HTTP clients don't need explicit cleanup
	return nil
}

// tokenStream reads SSE data lines off a streamed completion response.
type tokenStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Recv returns the next delta fragment. The terminal "[DONE]" marker maps
// to io.EOF; a connection that drops before the marker is a truncation and
// surfaces as io.ErrUnexpectedEOF rather than a clean end.
func (t *tokenStream) Recv() (string, error) {
	for t.scanner.Scan() {
		line := strings.TrimSpace(t.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return "", io.EOF
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	if err := t.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

// Close releases the underlying response body. Safe to call more than once.
func (t *tokenStream) Close() error {
	return t.body.Close()
}
