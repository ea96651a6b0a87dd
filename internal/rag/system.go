// Package rag wires the course index, the tools, the orchestrator and the
// session history into a question answering system.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/radutopala/courserag/internal/course"
	"github.com/radutopala/courserag/internal/orchestrator"
	"github.com/radutopala/courserag/internal/session"
	"github.com/radutopala/courserag/internal/tools"
	"github.com/radutopala/courserag/internal/vectorstore"
)

const queryPrompt = "Answer this question about course materials: "

// Answer is the outcome of one query.
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

// Analytics summarises the indexed catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System answers course questions.
type System struct {
	store        *vectorstore.CourseStore
	sessions     session.Store
	orchestrator *orchestrator.Orchestrator
	chunker      *course.Chunker
	logger       *slog.Logger
}

// New assembles a System from its collaborators.
func New(store *vectorstore.CourseStore, sessions session.Store, orch *orchestrator.Orchestrator, chunker *course.Chunker, logger *slog.Logger) *System {
	return &System{
		store:        store,
		sessions:     sessions,
		orchestrator: orch,
		chunker:      chunker,
		logger:       logger,
	}
}

// NewRegistry builds a registry holding fresh search and outline tools. Each
// query gets its own so source attribution never crosses queries.
func (s *System) NewRegistry() (*tools.Registry, error) {
	registry := tools.NewRegistry(s.logger)
	if err := registry.Register(tools.NewCourseSearchTool(s.store)); err != nil {
		return nil, err
	}
	if err := registry.Register(tools.NewCourseOutlineTool(s.store)); err != nil {
		return nil, err
	}
	return registry, nil
}

// Query answers query within sessionID, creating a session when it is empty.
func (s *System) Query(ctx context.Context, query, sessionID string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}

	if sessionID == "" {
		id, err := s.sessions.CreateSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = id
	}

	history, err := s.sessions.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	registry, err := s.NewRegistry()
	if err != nil {
		return nil, err
	}

	text, err := s.orchestrator.Answer(ctx, queryPrompt+query, history, registry.Definitions(), registry)
	if err != nil {
		return nil, err
	}

	sources := registry.LastSources()
	registry.ResetSources()

	if err := s.sessions.AddExchange(ctx, sessionID, query, text); err != nil {
		return nil, fmt.Errorf("failed to record exchange: %w", err)
	}

	s.logger.InfoContext(ctx, "Answered query", "session_id", sessionID, "sources", len(sources))
	return &Answer{Text: text, Sources: sources, SessionID: sessionID}, nil
}

// AddCourseDocument parses, chunks and indexes one course file.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*course.Course, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open course document: %w", err)
	}
	defer f.Close()

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	c, bodies, err := course.ParseDocument(f, fallback)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	chunks, err := s.chunker.Split(c.Title, bodies)
	if err != nil {
		return nil, 0, err
	}

	if err := s.store.AddCourse(c, chunks); err != nil {
		return nil, 0, err
	}

	s.logger.DebugContext(ctx, "Added course document", "path", path, "title", c.Title, "chunks", len(chunks))
	return c, len(chunks), nil
}

// AddCourseFolder indexes every .txt and .md file in dir, skipping courses
// already indexed. With clear set, the index is emptied first.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clear bool) (int, int, error) {
	if clear {
		s.store.Clear()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read course folder: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var courses, chunks int
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return courses, chunks, err
		}
		path := filepath.Join(dir, name)
		c, n, err := s.AddCourseDocument(ctx, path)
		if errors.Is(err, vectorstore.ErrCourseExists) {
			s.logger.InfoContext(ctx, "Course already indexed, skipping", "path", path)
			continue
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to index course document", "path", path, "error", err)
			continue
		}
		courses++
		chunks += n
		s.logger.InfoContext(ctx, "Indexed course document", "title", c.Title, "chunks", n)
	}

	return courses, chunks, nil
}

// Analytics reports the indexed catalog.
func (s *System) Analytics() Analytics {
	return Analytics{
		TotalCourses: s.store.CourseCount(),
		CourseTitles: s.store.CourseTitles(),
	}
}

// Store exposes the course index for front ends that call tools directly.
func (s *System) Store() *vectorstore.CourseStore {
	return s.store
}
