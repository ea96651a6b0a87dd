package vectorstore

import "errors"

// ErrCourseExists is returned when a course with the same title is already indexed.
var ErrCourseExists = errors.New("course already indexed")

// EmbeddingGenerator defines the interface for generating embeddings
type EmbeddingGenerator interface {
	// Generate creates an embedding vector for the given text
	Generate(text string) ([]float32, error)

	// Dimension returns the dimensionality of generated embeddings
	Dimension() int
}

// VocabularyBuilder is implemented by embedders that must see the whole
// corpus before they can embed (TF-IDF). The store calls it on every rebuild.
type VocabularyBuilder interface {
	BuildVocabulary(documents []string)
}

// chunkEmbedding is an indexed chunk with its vector.
type chunkEmbedding struct {
	text         string
	courseTitle  string
	lessonNumber *int
	index        int
	embedding    []float32
}

func (c *chunkEmbedding) metadata() map[string]any {
	meta := map[string]any{
		"course_title": c.courseTitle,
		"chunk_index":  c.index,
	}
	if c.lessonNumber != nil {
		meta["lesson_number"] = *c.lessonNumber
	}
	return meta
}
