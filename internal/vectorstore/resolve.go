package vectorstore

import "strings"

// Scores for the course name resolution tiers. Higher wins.
const (
	scoreTitleContainsQuery = 0.9
	scoreQueryContainsTitle = 0.8
	scoreFuzzyWords         = 0.7
)

// matchCourseTitle scores how well a user-supplied course name matches a
// title. 1 means an exact (case-insensitive) match, 0 means no match.
func matchCourseTitle(query, title string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(title)
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 1
	}
	if strings.Contains(t, q) {
		return scoreTitleContainsQuery
	}
	if strings.Contains(q, t) {
		return scoreQueryContainsTitle
	}

	tokens := Tokenize(q)
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, token := range tokens {
		if fuzzyMatch(token, t) {
			matched++
		}
	}
	return scoreFuzzyWords * float64(matched) / float64(len(tokens))
}

// fuzzyMatch returns true if query fuzzy matches target.
// Uses Levenshtein distance with a threshold based on query length.
func fuzzyMatch(query, target string) bool {
	if query == "" {
		return true
	}

	queryLower := strings.ToLower(query)
	targetLower := strings.ToLower(target)

	if strings.Contains(targetLower, queryLower) {
		return true
	}

	// Shorter queries get stricter matching
	maxDistance := len([]rune(queryLower)) / 3
	maxDistance = max(maxDistance, 1)
	maxDistance = min(maxDistance, 3)

	words := strings.FieldsFunc(targetLower, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == ':' || r == ','
	})
	for _, word := range words {
		if levenshteinDistance(queryLower, word) <= maxDistance {
			return true
		}
	}

	return false
}

// levenshteinDistance calculates the minimum number of single-rune edits
// required to change s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
