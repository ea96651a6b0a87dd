package vectorstore

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"as": true, "is": true, "was": true, "are": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"can": true, "this": true, "that": true, "these": true, "those": true,
	"what": true, "about": true, "how": true, "me": true, "tell": true,
}

// TFIDFEmbedder generates embeddings using TF-IDF weighting over the
// indexed course chunks. Vocabulary indices are assigned in sorted word
// order so rebuilding the same corpus gives the same vectors.
type TFIDFEmbedder struct {
	mu          sync.RWMutex
	vocabulary  map[string]int     // word -> index
	idf         map[string]float32 // word -> inverse document frequency
	dimension   int
	logger      *slog.Logger
	initialized bool
}

// NewTFIDFEmbedder creates a new TF-IDF based embedding generator
func NewTFIDFEmbedder(logger *slog.Logger) *TFIDFEmbedder {
	return &TFIDFEmbedder{
		vocabulary: make(map[string]int),
		idf:        make(map[string]float32),
		logger:     logger,
	}
}

// BuildVocabulary replaces the vocabulary and IDF scores with ones computed
// from documents.
func (e *TFIDFEmbedder) BuildVocabulary(documents []string) {
	docFreq := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]bool)
		for _, word := range Tokenize(doc) {
			if !seen[word] {
				docFreq[word]++
				seen[word] = true
			}
		}
	}

	words := make([]string, 0, len(docFreq))
	for word := range docFreq {
		words = append(words, word)
	}
	sort.Strings(words)

	vocabulary := make(map[string]int, len(words))
	idf := make(map[string]float32, len(words))
	totalDocs := len(documents)
	for i, word := range words {
		vocabulary[word] = i
		// IDF = log((N + 1) / (df + 1)) + 1
		idf[word] = float32(math.Log(float64(totalDocs+1)/float64(docFreq[word]+1))) + 1.0
	}

	e.mu.Lock()
	e.vocabulary = vocabulary
	e.idf = idf
	e.dimension = len(vocabulary)
	e.initialized = true
	e.mu.Unlock()

	e.logger.Info("Built TF-IDF vocabulary", "vocab_size", len(vocabulary), "documents", totalDocs)
}

// Generate creates an embedding vector for the given text
func (e *TFIDFEmbedder) Generate(text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return make([]float32, 1), nil
	}

	words := Tokenize(text)
	termFreq := make(map[string]int)
	for _, word := range words {
		termFreq[word]++
	}

	embedding := make([]float32, e.dimension)
	totalTerms := float32(len(words))
	for word, count := range termFreq {
		if idx, exists := e.vocabulary[word]; exists {
			tf := float32(count) / totalTerms
			embedding[idx] = tf * e.idf[word]
		}
	}

	return normalize(embedding), nil
}

// Dimension returns the dimensionality of generated embeddings
func (e *TFIDFEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return 0
	}
	return e.dimension
}

// Tokenize lowercases text, splits it on whitespace and punctuation and drops
// single characters and stop words.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})

	filtered := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) > 1 && !stopWords[word] {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

// normalize performs L2 normalization on the embedding
func normalize(embedding []float32) []float32 {
	var norm float32
	for _, val := range embedding {
		norm += val * val
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		return embedding
	}

	normalized := make([]float32, len(embedding))
	for i, val := range embedding {
		normalized[i] = val / norm
	}
	return normalized
}

// cosineSimilarity calculates the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
