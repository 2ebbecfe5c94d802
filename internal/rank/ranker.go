// Package rank orders candidate fragments by cosine similarity to a query
// vector, optionally blended with a literal keyword-overlap score.
package rank

import (
	"math"
	"sort"
	"strings"
)

// Scored pairs an index into the caller's fragment pool with its scores
type Scored struct {
	Index      int     // Position in the input pool
	Score      float64 // Combined score used for ordering
	Similarity float64 // Cosine similarity component
	Keyword    float64 // Keyword-overlap component, zero when no keywords supplied
}

// Rank orders the pool by decreasing cosine similarity to the query vector.
// Ties keep insertion order.
func Rank(query []float32, pool [][]float32) []Scored {
	scored := make([]Scored, len(pool))
	for i, v := range pool {
		sim := Cosine(query, v)
		scored[i] = Scored{Index: i, Score: sim, Similarity: sim}
	}
	sortStable(scored)
	return scored
}

// RankWithKeywords averages cosine similarity with a keyword-overlap score
// against the fragment contents. Used only when the caller supplies keywords;
// with an empty keyword set it degrades to Rank.
func RankWithKeywords(query []float32, pool [][]float32, contents []string, keywords []string) []Scored {
	if len(keywords) == 0 {
		return Rank(query, pool)
	}

	scored := make([]Scored, len(pool))
	for i, v := range pool {
		sim := Cosine(query, v)
		kw := 0.0
		if i < len(contents) {
			kw = KeywordOverlap(contents[i], keywords)
		}
		scored[i] = Scored{
			Index:      i,
			Score:      (sim + kw) / 2,
			Similarity: sim,
			Keyword:    kw,
		}
	}
	sortStable(scored)
	return scored
}

func sortStable(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// KeywordOverlap returns the fraction of keywords that literally appear in
// the content, case-insensitive.
func KeywordOverlap(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// Cosine returns the cosine similarity of two vectors. Mismatched or zero
// vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns the L2-normalized copy of a vector.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
