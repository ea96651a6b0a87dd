package course

// Lesson is one numbered lesson of a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course holds catalog information for a course. Title is the unique key.
type Course struct {
	Title      string   `json:"title"`
	Instructor string   `json:"instructor,omitempty"`
	Link       string   `json:"course_link,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Clone returns a deep copy so callers can't mutate indexed catalog data.
func (c *Course) Clone() *Course {
	out := *c
	out.Lessons = append([]Lesson(nil), c.Lessons...)
	return &out
}

// Chunk is one retrievable fragment of course text.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int // nil when the text isn't tied to a lesson
	Index        int  // position within the course
	Content      string
}

// LessonBody is the raw text of one lesson before chunking.
type LessonBody struct {
	LessonNumber *int
	Text         string
}
