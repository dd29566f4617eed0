package training

import (
	"sort"
	"strings"
)

// DefaultTopK bounds how many reference snippets feed a generation context.
const DefaultTopK = 3

// TopRelevant scores the corpus against a query by case-insensitive
// token-set overlap and returns at most k items with score > 0, highest
// first. Ties keep corpus iteration order. This is a deliberately cheap
// heuristic, not semantic search.
func TopRelevant(corpus []Datum, query string, k int) []Scored {
	if k <= 0 {
		k = DefaultTopK
	}
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}
	scored := make([]Scored, 0, len(corpus))
	for _, datum := range corpus {
		score := overlap(queryTokens, tokenSet(datum.Content))
		if score == 0 {
			continue
		}
		scored = append(scored, Scored{Datum: datum, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func tokenSet(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(strings.ToLower(text)) {
		tokens[field] = struct{}{}
	}
	return tokens
}

func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for token := range a {
		if _, ok := b[token]; ok {
			count++
		}
	}
	return count
}
