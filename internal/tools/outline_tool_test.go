package tools

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radutopala/courserag/internal/course"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// MockCatalog implements CourseCatalog for testing
type MockCatalog struct {
	resolveFunc func(ctx context.Context, name string) (string, bool)
	outlineFunc func(ctx context.Context, title string) (*course.Course, bool)
}

func (m *MockCatalog) ResolveCourseName(ctx context.Context, name string) (string, bool) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, name)
	}
	return "", false
}

func (m *MockCatalog) CourseOutline(ctx context.Context, title string) (*course.Course, bool) {
	if m.outlineFunc != nil {
		return m.outlineFunc(ctx, title)
	}
	return nil, false
}

func mcpCatalog() *MockCatalog {
	return &MockCatalog{
		resolveFunc: func(_ context.Context, name string) (string, bool) {
			if name == "mcp" || name == "MCP: Build Rich-Context AI Apps" {
				return "MCP: Build Rich-Context AI Apps", true
			}
			return "", false
		},
		outlineFunc: func(_ context.Context, title string) (*course.Course, bool) {
			if title != "MCP: Build Rich-Context AI Apps" {
				return nil, false
			}
			return &course.Course{
				Title:      title,
				Instructor: "Elie Schoppik",
				Link:       "https://example.com/mcp",
				Lessons: []course.Lesson{
					{Number: 0, Title: "Introduction", Link: "https://example.com/mcp/0"},
					{Number: 1, Title: "Why MCP"},
				},
			}, true
		},
	}
}

func TestCourseOutlineTool_Definition(t *testing.T) {
	def := NewCourseOutlineTool(&MockCatalog{}).Definition()

	require.Equal(t, "get_course_outline", def.Name)
	require.Equal(t, []string{"course_name"}, def.InputSchema["required"])
}

func TestCourseOutlineTool_Execute(t *testing.T) {
	tool := NewCourseOutlineTool(mcpCatalog())

	out, err := tool.Execute(context.Background(), Arguments{"course_name": "mcp"})

	require.NoError(t, err)
	require.Equal(t, "Course: MCP: Build Rich-Context AI Apps\n"+
		"Instructor: Elie Schoppik\n"+
		"Course Link: https://example.com/mcp\n"+
		"\nLessons (2):"+
		"\nLesson 0: Introduction (https://example.com/mcp/0)"+
		"\nLesson 1: Why MCP", out)
}

func TestCourseOutlineTool_NotFound(t *testing.T) {
	tool := NewCourseOutlineTool(mcpCatalog())

	out, err := tool.Execute(context.Background(), Arguments{"course_name": "Cooking"})

	require.NoError(t, err)
	require.Equal(t, "No course found matching 'Cooking'", out)
}

func TestCourseOutlineTool_ResolvedButMissing(t *testing.T) {
	catalog := mcpCatalog()
	catalog.resolveFunc = func(context.Context, string) (string, bool) { return "Ghost", true }

	out, err := NewCourseOutlineTool(catalog).Execute(context.Background(), Arguments{"course_name": "ghost"})

	require.NoError(t, err)
	require.Equal(t, "No course found matching 'ghost'", out)
}

func TestCourseOutlineTool_MissingArgument(t *testing.T) {
	_, err := NewCourseOutlineTool(mcpCatalog()).Execute(context.Background(), Arguments{})
	require.Error(t, err)
}

func TestCourseOutlineTool_NotTracked(t *testing.T) {
	registry := NewRegistry(testLogger())
	require.NoError(t, registry.Register(NewCourseOutlineTool(mcpCatalog())))

	_, err := registry.Execute(context.Background(), OutlineToolName, Arguments{"course_name": "mcp"})
	require.NoError(t, err)

	require.Empty(t, registry.LastSources())
}
