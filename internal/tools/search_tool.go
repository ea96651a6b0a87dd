package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/radutopala/courserag/internal/search"
)

// SearchToolName is the name the model uses to request a content search.
const SearchToolName = "search_course_content"

// CourseSearchTool searches course content with optional course and lesson
// filters and remembers which fragments it returned.
type CourseSearchTool struct {
	searcher ContentSearcher

	mu          sync.Mutex
	lastSources []string
}

// NewCourseSearchTool creates a search tool backed by searcher.
func NewCourseSearchTool(searcher ContentSearcher) *CourseSearchTool {
	return &CourseSearchTool{
		searcher:    searcher,
		lastSources: []string{},
	}
}

// Definition implements Tool.
func (t *CourseSearchTool) Definition() Definition {
	return Definition{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute implements Tool.
func (t *CourseSearchTool) Execute(ctx context.Context, args Arguments) (string, error) {
	query, err := args.String("query")
	if err != nil {
		return "", err
	}
	courseName, err := args.OptionalString("course_name")
	if err != nil {
		return "", err
	}
	lessonNumber, err := args.OptionalInt("lesson_number")
	if err != nil {
		return "", err
	}

	result := t.searcher.Search(ctx, query, courseName, lessonNumber)
	if result == nil {
		return "", fmt.Errorf("searcher returned no result for %q", query)
	}

	if result.Failed() {
		t.setSources(nil)
		return result.Error, nil
	}

	if result.IsEmpty() {
		t.setSources(nil)
		return emptyMessage(courseName, lessonNumber), nil
	}

	return t.format(result), nil
}

func emptyMessage(courseName string, lessonNumber *int) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&b, " in course '%s'", courseName)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *lessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

// format renders fragments in collaborator order and records their sources.
func (t *CourseSearchTool) format(result *search.Result) string {
	fragments := make([]string, 0, result.Len())
	sources := make([]string, 0, result.Len())
	for i, doc := range result.Documents {
		var meta map[string]any
		if i < len(result.Metadata) {
			meta = result.Metadata[i]
		}
		label := search.SourceLabel(meta)
		fragments = append(fragments, "["+label+"]\n"+doc)
		sources = append(sources, label)
	}
	t.setSources(sources)
	return strings.Join(fragments, "\n\n")
}

func (t *CourseSearchTool) setSources(sources []string) {
	if sources == nil {
		sources = []string{}
	}
	t.mu.Lock()
	t.lastSources = sources
	t.mu.Unlock()
}

// LastSources implements SourceTracker.
func (t *CourseSearchTool) LastSources() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.lastSources...)
}

// ResetSources implements SourceTracker.
func (t *CourseSearchTool) ResetSources() {
	t.setSources(nil)
}
