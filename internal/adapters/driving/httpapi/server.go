// Package httpapi exposes the question-answering pipeline over HTTP.
// Chat responses stream as server-sent events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driving"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

const maxBodyBytes = 1 << 20 // 1 MiB request body limit

// Config holds server settings.
type Config struct {
	Port int
}

// Server wraps the HTTP listener and its routes.
type Server struct {
	answerer  driving.AnswerService
	documents driving.DocumentService
	httpSrv   *http.Server
}

// NewServer builds the router and wires handlers.
func NewServer(cfg Config, answerer driving.AnswerService, documents driving.DocumentService) *Server {
	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		answerer:  answerer,
		documents: documents,
	}

	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(), bodyLimit(maxBodyBytes))

	router.GET("/health", s.handleHealth)
	router.POST("/ingest", s.handleIngest)
	router.POST("/chat", s.handleChat)
	router.GET("/document/:id", s.handleGetDocument)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	logger.Info("listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleIngest exists so clients get a clear answer rather than a 404:
// ingestion runs through the CLI, not the HTTP surface.
func (s *Server) handleIngest(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"message": "ingestion runs via the corpusqa ingest command",
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type sourcePayload struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
	Distance float64         `json:"distance"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}

	ctx := c.Request.Context()
	answer, err := s.answerer.Answer(ctx, req.Message)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-answer.Events:
			if !ok {
				return
			}
			switch {
			case ev.Err != nil:
				writeEvent(c, "error", gin.H{"error": ev.Err.Error()})
				return
			case ev.Done:
				writeEvent(c, "done", gin.H{"sources": toSourcePayloads(answer.Sources)})
				return
			default:
				writeEvent(c, "token", gin.H{"token": ev.Token})
			}
		}
	}
}

func writeEvent(c *gin.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("marshal SSE payload: %v", err)
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	c.Writer.Flush()
}

func toSourcePayloads(sources []domain.RetrievedSource) []sourcePayload {
	out := make([]sourcePayload, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourcePayload{
			ID:       src.ID,
			Text:     src.Text,
			Metadata: src.Metadata,
			Distance: src.Distance,
		})
	}
	return out
}

func (s *Server) handleGetDocument(c *gin.Context) {
	rec, err := s.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       rec.ID,
		"text":     rec.Text,
		"metadata": rec.Metadata,
	})
}
