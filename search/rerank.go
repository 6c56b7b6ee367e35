package search

import "strings"

const (
	phraseBonus    = 0.25
	proximityBonus = 0.15
)

// Rerank applies a second scoring pass over candidates: documents containing
// the query as an exact phrase get a fixed boost, and documents where all
// query tokens appear inside a tight window get a proximity boost scaled by
// how tight the window is. Scores are adjusted in place.
func Rerank(query []string, docs []Document, scores map[int]float64) {
	if len(query) < 2 {
		return
	}
	phrase := strings.Join(query, " ")
	for doc, score := range scores {
		tokens := docs[doc].Tokens
		if len(tokens) == 0 {
			continue
		}
		if strings.Contains(strings.Join(tokens, " "), phrase) {
			scores[doc] = score * (1 + phraseBonus)
			continue
		}
		if w := minWindow(query, tokens); w > 0 {
			tightness := float64(len(query)) / float64(w)
			scores[doc] = score * (1 + proximityBonus*tightness)
		}
	}
}

// minWindow returns the length of the smallest token window containing every
// query token, or 0 when the document misses at least one of them.
func minWindow(query, tokens []string) int {
	need := make(map[string]int, len(query))
	for _, q := range query {
		need[q]++
	}
	have := make(map[string]int, len(need))
	matched := 0
	best := 0
	left := 0
	for right, t := range tokens {
		if _, ok := need[t]; !ok {
			continue
		}
		have[t]++
		if have[t] == need[t] {
			matched++
		}
		for matched == len(need) {
			if best == 0 || right-left+1 < best {
				best = right - left + 1
			}
			lt := tokens[left]
			if _, ok := need[lt]; ok {
				if have[lt] == need[lt] {
					matched--
				}
				have[lt]--
			}
			left++
		}
	}
	return best
}
