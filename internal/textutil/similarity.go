package textutil

import (
	"strings"

	"github.com/agext/levenshtein"
)

// MatchThreshold is the similarity at which a title counts as a match.
const MatchThreshold = 0.6

// Similarity scores query against one title in [0, 1]. An exact normalized
// match scores 1 and a title containing the whole query scores at least 0.9.
func Similarity(query, title string) float64 {
	q, t := Normalize(query), Normalize(title)
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 1
	}
	edit := levenshtein.Similarity(q, t, nil)
	cosine := CosineSimilarity(NewFingerprint(q), NewFingerprint(t))
	score := max(edit, cosine)
	if strings.Contains(t, q) {
		score = max(score, 0.9)
	}
	return min(score, 0.99)
}

// BestSimilarity returns the highest score of query against any title.
func BestSimilarity(query string, titles []string) float64 {
	var best float64
	for _, title := range titles {
		if s := Similarity(query, title); s > best {
			best = s
		}
	}
	return best
}

// Matches reports whether any title is similar enough to query.
func Matches(query string, titles []string) bool {
	return BestSimilarity(query, titles) >= MatchThreshold
}
