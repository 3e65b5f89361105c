// Package suggest finds "did you mean" candidates for mistyped profile names
// and config keys.
package suggest

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Limit is the maximum number of suggestions returned.
const Limit = 3

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Names returns up to Limit candidates for query, best first. Subsequence
// matches ("wrk" for "Work") rank ahead of names within a small edit
// distance ("Wokr"). Matching ignores case.
func Names(query string, candidates []string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(candidates) == 0 {
		return nil
	}

	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}

	var result []string
	for _, m := range fuzzy.Find(q, lowered) {
		result = append(result, candidates[m.Index])
		if len(result) == Limit {
			return result
		}
	}

	type scored struct {
		name string
		dist int
	}
	var close []scored
	maxDist := max(2, len(q)/3)
	for i, c := range lowered {
		if slices.Contains(result, candidates[i]) {
			continue
		}
		if d := levenshtein(q, c); d <= maxDist {
			close = append(close, scored{candidates[i], d})
		}
	}
	slices.SortStableFunc(close, func(a, b scored) int { return a.dist - b.dist })
	for _, s := range close {
		if len(result) == Limit {
			break
		}
		result = append(result, s.name)
	}
	return result
}

// Hint formats suggestions as a trailing sentence, or "" when there are none.
func Hint(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	quoted := make([]string, len(suggestions))
	for i, s := range suggestions {
		quoted[i] = "\"" + s + "\""
	}
	return "did you mean " + strings.Join(quoted, " or ") + "?"
}
