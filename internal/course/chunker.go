package course

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits lesson bodies into overlapping chunks.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the settings and returns a Chunker.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks every body of a course. Chunk indices run across the whole
// course in document order.
func (c *Chunker) Split(courseTitle string, bodies []LessonBody) ([]Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
	)

	chunks := make([]Chunk, 0, len(bodies))
	idx := 0
	for _, body := range bodies {
		segments, err := splitter.SplitText(body.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split course %q: %w", courseTitle, err)
		}
		for _, segment := range segments {
			text := strings.TrimSpace(segment)
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				CourseTitle:  courseTitle,
				LessonNumber: body.LessonNumber,
				Index:        idx,
				Content:      text,
			})
			idx++
		}
	}
	return chunks, nil
}
