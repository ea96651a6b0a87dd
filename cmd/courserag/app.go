package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/radutopala/courserag/internal/config"
	"github.com/radutopala/courserag/internal/course"
	"github.com/radutopala/courserag/internal/llm"
	"github.com/radutopala/courserag/internal/orchestrator"
	"github.com/radutopala/courserag/internal/rag"
	"github.com/radutopala/courserag/internal/session"
	"github.com/radutopala/courserag/internal/vectorstore"
)

// app holds everything a subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	system  *rag.System
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Close failed", "error", err)
		}
	}
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, err
	}
	if flags.docs != "" {
		cfg.DocsPath = flags.docs
	}
	if flags.logLevel != "" {
		if _, err := config.ParseLogLevel(flags.logLevel); err != nil {
			return nil, err
		}
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

// newLogger writes to cfg.LogFile, falling back to stderr. Stdout stays
// free for the MCP stdio transport.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	var closer io.Closer
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = logFile
			closer = logFile
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer
}

// newApp builds the full stack and indexes the docs folder.
func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger, logCloser := newLogger(cfg)
	a := &app{cfg: cfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	system, err := a.buildSystem(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.system = system

	if err := a.ingest(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildSystem(ctx context.Context) (*rag.System, error) {
	cfg := a.cfg

	store, err := vectorstore.NewCourseStore(
		vectorstore.NewTFIDFEmbedder(a.logger),
		a.logger,
		vectorstore.WithMaxResults(cfg.MaxResults),
		vectorstore.WithCacheSize(cfg.CacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create course store: %w", err)
	}

	chunker, err := course.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	var sessions session.Store
	if cfg.SessionDB != "" {
		sqlite, err := session.NewSQLiteStore(ctx, cfg.SessionDB, cfg.MaxHistory)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlite)
		sessions = sqlite
		a.logger.Info("Using SQLite session history", "path", cfg.SessionDB)
	} else {
		sessions = session.NewMemoryStore(cfg.MaxHistory)
	}

	client, err := llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, a.logger)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{orchestrator.WithMaxTokens(cfg.MaxTokens)}
	if cfg.ParallelTools {
		opts = append(opts, orchestrator.WithParallelTools(0))
	}

	return rag.New(store, sessions, orchestrator.New(client, a.logger, opts...), chunker, a.logger), nil
}

func (a *app) ingest(ctx context.Context) error {
	docs := a.cfg.DocsPath
	if docs == "" {
		return nil
	}
	if _, err := os.Stat(docs); errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("Docs folder not found, starting with an empty catalog", "path", docs)
		return nil
	}

	courses, chunks, err := a.system.AddCourseFolder(ctx, docs, false)
	if err != nil {
		return err
	}
	a.logger.Info("Loaded course documents", "courses", courses, "chunks", chunks)
	return nil
}
