package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/radutopala/courserag/internal/course"
	"github.com/radutopala/courserag/internal/search"
)

var (
	// ErrUnknownTool is returned when executing a name nobody registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrDuplicateToolName is returned when registering a name twice.
	ErrDuplicateToolName = errors.New("tool already registered")
)

// Definition describes a tool to the language model.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON schema object
}

// Tool is a single callable operation the model may request.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args Arguments) (string, error)
}

// SourceTracker is implemented by tools that record which fragments backed
// their last result.
type SourceTracker interface {
	LastSources() []string
	ResetSources()
}

// ContentSearcher runs filtered retrieval queries over course content.
type ContentSearcher interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) *search.Result
}

// CourseCatalog resolves course names and looks up course outlines.
type CourseCatalog interface {
	ResolveCourseName(ctx context.Context, name string) (string, bool)
	CourseOutline(ctx context.Context, title string) (*course.Course, bool)
}

// Arguments are the named arguments the model supplied for a tool call.
type Arguments map[string]any

// String returns a required, non-empty string argument.
func (a Arguments) String(name string) (string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("argument %q cannot be empty", name)
	}
	return s, nil
}

// OptionalString returns a trimmed string argument, "" when absent or null.
func (a Arguments) OptionalString(name string) (string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, raw)
	}
	return strings.TrimSpace(s), nil
}

// OptionalInt returns an integer argument, nil when absent or null.
func (a Arguments) OptionalInt(name string) (*int, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	n, ok := search.ToInt(raw)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an integer, got %v", name, raw)
	}
	return &n, nil
}
