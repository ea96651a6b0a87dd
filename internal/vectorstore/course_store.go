package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/radutopala/courserag/internal/course"
	"github.com/radutopala/courserag/internal/search"
)

const (
	defaultMaxResults = 5
	defaultCacheSize  = 256
)

// Option configures a CourseStore.
type Option func(*CourseStore)

// WithMaxResults caps the number of fragments returned per search.
func WithMaxResults(n int) Option {
	return func(s *CourseStore) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithCacheSize sets the size of the query embedding cache. Zero disables it.
func WithCacheSize(n int) Option {
	return func(s *CourseStore) {
		s.cacheSize = n
	}
}

// CourseStore is an in-memory course catalog plus a vector index over the
// course chunks. It is safe for concurrent use.
type CourseStore struct {
	mu         sync.RWMutex
	courses    map[string]*course.Course
	order      []string // course titles in insertion order
	chunks     []*chunkEmbedding
	embedder   EmbeddingGenerator
	cache      *lru.Cache[string, []float32]
	cacheSize  int
	maxResults int
	logger     *slog.Logger
}

// NewCourseStore creates an empty store backed by embedder.
func NewCourseStore(embedder EmbeddingGenerator, logger *slog.Logger, opts ...Option) (*CourseStore, error) {
	s := &CourseStore{
		courses:    make(map[string]*course.Course),
		embedder:   embedder,
		cacheSize:  defaultCacheSize,
		maxResults: defaultMaxResults,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cacheSize > 0 {
		cache, err := lru.New[string, []float32](s.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// AddCourse indexes a course and its chunks, then rebuilds every embedding.
func (s *CourseStore) AddCourse(c *course.Course, chunks []course.Chunk) error {
	if c == nil || strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("course title cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.courses[c.Title]; exists {
		return fmt.Errorf("%w: %s", ErrCourseExists, c.Title)
	}

	s.courses[c.Title] = c.Clone()
	s.order = append(s.order, c.Title)
	for _, ch := range chunks {
		s.chunks = append(s.chunks, &chunkEmbedding{
			text:         ch.Content,
			courseTitle:  c.Title,
			lessonNumber: ch.LessonNumber,
			index:        ch.Index,
		})
	}

	if err := s.rebuildLocked(); err != nil {
		return err
	}

	s.logger.Info("Indexed course", "title", c.Title, "lessons", len(c.Lessons), "chunks", len(chunks))
	return nil
}

// rebuildLocked recomputes vocabulary and embeddings. Caller holds s.mu.
func (s *CourseStore) rebuildLocked() error {
	if builder, ok := s.embedder.(VocabularyBuilder); ok {
		documents := make([]string, len(s.chunks))
		for i, ch := range s.chunks {
			documents[i] = ch.text
		}
		builder.BuildVocabulary(documents)
	}

	for _, ch := range s.chunks {
		embedding, err := s.embedder.Generate(ch.text)
		if err != nil {
			return fmt.Errorf("failed to generate embedding for %s chunk %d: %w", ch.courseTitle, ch.index, err)
		}
		ch.embedding = embedding
	}

	if s.cache != nil {
		s.cache.Purge()
	}

	s.logger.Debug("Vector index rebuilt", "chunks", len(s.chunks), "dimension", s.embedder.Dimension())
	return nil
}

// Search finds the chunks most similar to query. A non-empty courseName is
// resolved to a catalog title first; lessonNumber restricts matches to one
// lesson. Failures are reported inside the result, never as a Go error.
func (s *CourseStore) Search(ctx context.Context, query, courseName string, lessonNumber *int) *search.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var title string
	if courseName != "" {
		resolved, ok := s.resolveLocked(courseName)
		if !ok {
			return search.NewErrorResult(fmt.Sprintf("No course found matching '%s'", courseName))
		}
		title = resolved
	}

	if len(s.chunks) == 0 {
		return search.NewEmptyResult()
	}

	queryEmbedding, err := s.embedQuery(query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Query embedding failed", "query", query, "error", err)
		return search.NewErrorResult(fmt.Sprintf("Search error: %v", err))
	}

	type scored struct {
		chunk *chunkEmbedding
		score float32
	}
	candidates := make([]scored, 0, len(s.chunks))
	for _, ch := range s.chunks {
		if title != "" && ch.courseTitle != title {
			continue
		}
		if lessonNumber != nil && (ch.lessonNumber == nil || *ch.lessonNumber != *lessonNumber) {
			continue
		}
		score := cosineSimilarity(queryEmbedding, ch.embedding)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{chunk: ch, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > s.maxResults {
		candidates = candidates[:s.maxResults]
	}

	result := search.NewEmptyResult()
	for _, c := range candidates {
		result.Documents = append(result.Documents, c.chunk.text)
		result.Metadata = append(result.Metadata, c.chunk.metadata())
		result.Distances = append(result.Distances, float64(1-c.score))
	}

	s.logger.DebugContext(ctx, "Vector search completed",
		"query", query,
		"course", title,
		"results", result.Len())

	return result
}

// embedQuery returns the query embedding, consulting the LRU cache. Caller holds s.mu.
func (s *CourseStore) embedQuery(query string) ([]float32, error) {
	if s.cache != nil {
		if embedding, ok := s.cache.Get(query); ok {
			return embedding, nil
		}
	}
	embedding, err := s.embedder.Generate(query)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(query, embedding)
	}
	return embedding, nil
}

// ResolveCourseName maps a user-supplied course name to the best matching
// catalog title.
func (s *CourseStore) ResolveCourseName(_ context.Context, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(name)
}

func (s *CourseStore) resolveLocked(name string) (string, bool) {
	var best string
	var bestScore float64
	for _, title := range s.order {
		score := matchCourseTitle(name, title)
		if score == 1 {
			return title, true
		}
		if score > bestScore {
			best, bestScore = title, score
		}
	}
	return best, bestScore > 0
}

// CourseOutline returns a copy of the catalog entry for an exact title.
func (s *CourseStore) CourseOutline(_ context.Context, title string) (*course.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[title]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// CourseTitles lists indexed course titles in insertion order.
func (s *CourseStore) CourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

// CourseCount returns the number of indexed courses.
func (s *CourseStore) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ChunkCount returns the number of indexed chunks.
func (s *CourseStore) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Clear drops every course and chunk.
func (s *CourseStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = make(map[string]*course.Course)
	s.order = nil
	s.chunks = nil
	if s.cache != nil {
		s.cache.Purge()
	}
	s.logger.Info("Cleared course store")
}
