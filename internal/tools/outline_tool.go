package tools

import (
	"context"
	"fmt"
	"strings"
)

// OutlineToolName is the name the model uses to request a course outline.
const OutlineToolName = "get_course_outline"

// CourseOutlineTool returns the lesson list of a course.
type CourseOutlineTool struct {
	catalog CourseCatalog
}

// NewCourseOutlineTool creates an outline tool backed by catalog.
func NewCourseOutlineTool(catalog CourseCatalog) *CourseOutlineTool {
	return &CourseOutlineTool{catalog: catalog}
}

// Definition implements Tool.
func (t *CourseOutlineTool) Definition() Definition {
	return Definition{
		Name:        OutlineToolName,
		Description: "Get the outline of a course: title, instructor, link and the complete numbered lesson list",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

// Execute implements Tool.
func (t *CourseOutlineTool) Execute(ctx context.Context, args Arguments) (string, error) {
	name, err := args.String("course_name")
	if err != nil {
		return "", err
	}

	notFound := fmt.Sprintf("No course found matching '%s'", name)
	title, ok := t.catalog.ResolveCourseName(ctx, name)
	if !ok {
		return notFound, nil
	}
	c, ok := t.catalog.CourseOutline(ctx, title)
	if !ok {
		return notFound, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", c.Title)
	if c.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", c.Instructor)
	}
	if c.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", c.Link)
	}
	fmt.Fprintf(&b, "\nLessons (%d):", len(c.Lessons))
	for _, lesson := range c.Lessons {
		fmt.Fprintf(&b, "\nLesson %d: %s", lesson.Number, lesson.Title)
		if lesson.Link != "" {
			fmt.Fprintf(&b, " (%s)", lesson.Link)
		}
	}
	return b.String(), nil
}
