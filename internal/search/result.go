package search

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Metadata keys attached to every retrieved fragment.
const (
	KeyCourseTitle  = "course_title"
	KeyLessonNumber = "lesson_number"
	KeyChunkIndex   = "chunk_index"
)

// Result is the outcome of one retrieval query.
// Documents, Metadata and Distances are parallel slices. A non-empty Error
// means the query failed and all three slices are empty.
type Result struct {
	Documents []string         `json:"documents"`
	Metadata  []map[string]any `json:"metadata"`
	Distances []float64        `json:"distances"`
	Error     string           `json:"error,omitempty"`
}

// NewErrorResult builds a failed result carrying msg.
func NewErrorResult(msg string) *Result {
	return &Result{
		Documents: []string{},
		Metadata:  []map[string]any{},
		Distances: []float64{},
		Error:     msg,
	}
}

// NewEmptyResult builds a successful result with no matches.
func NewEmptyResult() *Result {
	return &Result{
		Documents: []string{},
		Metadata:  []map[string]any{},
		Distances: []float64{},
	}
}

// Failed reports whether the retrieval collaborator returned an error.
func (r *Result) Failed() bool {
	return r.Error != ""
}

// IsEmpty reports whether no fragments matched.
func (r *Result) IsEmpty() bool {
	return len(r.Documents) == 0
}

// Len returns the number of fragments.
func (r *Result) Len() int {
	return len(r.Documents)
}

// CourseTitle reads the course title of a fragment, "unknown" when missing.
func CourseTitle(meta map[string]any) string {
	if title, ok := meta[KeyCourseTitle].(string); ok && title != "" {
		return title
	}
	return "unknown"
}

// LessonNumber reads the lesson number of a fragment. Numbers decoded from
// JSON arrive as float64 or json.Number, so those are accepted too.
func LessonNumber(meta map[string]any) (int, bool) {
	raw, ok := meta[KeyLessonNumber]
	if !ok || raw == nil {
		return 0, false
	}
	return ToInt(raw)
}

// ToInt converts the numeric shapes produced by Go code and JSON decoding
// into an int. Non-integral floats are rejected.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case float32:
		if float64(n) != math.Trunc(float64(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// SourceLabel renders the attribution label of a fragment:
// "<course> - Lesson <n>", or just "<course>" without lesson metadata.
func SourceLabel(meta map[string]any) string {
	title := CourseTitle(meta)
	if lesson, ok := LessonNumber(meta); ok {
		return fmt.Sprintf("%s - Lesson %d", title, lesson)
	}
	return title
}
