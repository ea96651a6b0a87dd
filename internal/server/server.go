// Package server exposes the question answering system over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/radutopala/courserag/internal/rag"
)

const shutdownTimeout = 10 * time.Second

// Backend answers queries and reports catalog statistics.
type Backend interface {
	Query(ctx context.Context, query, sessionID string) (*rag.Answer, error)
	Analytics() rag.Analytics
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Server is the HTTP front end.
type Server struct {
	backend Backend
	engine  *gin.Engine
	logger  *slog.Logger
	mounts  map[string]http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithHandler serves h under path for every method, e.g. an MCP endpoint.
func WithHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.mounts[path] = h
	}
}

// New creates a Server with its routes attached.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Server {
	engine := gin.New()
	s := &Server{backend: backend, engine: engine, logger: logger, mounts: map[string]http.Handler{}}
	for _, opt := range opts {
		opt(s)
	}
	engine.Use(gin.Recovery(), s.requestLogger())
	s.attachRoutes()
	return s
}

func (s *Server) attachRoutes() {
	api := s.engine.Group("/api")
	api.POST("/query", s.handleQuery)
	api.GET("/courses", s.handleCourses)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	for path, h := range s.mounts {
		s.engine.Any(path, gin.WrapH(h))
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query cannot be empty"})
		return
	}

	answer, err := s.backend.Query(c.Request.Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleCourses(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.Analytics())
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
