package search

import (
	"math"
	"sync"
)

const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	doc   int
	count int
}

// Index is an in-memory BM25 index over a fixed document set. Documents are
// referred to by their ordinal in the slice passed to Build.
type Index struct {
	mu          sync.RWMutex
	inverted    map[string][]posting
	docLengths  []int
	totalLength int64
}

// NewIndex creates an empty BM25 index.
func NewIndex() *Index {
	return &Index{inverted: make(map[string][]posting)}
}

// Build indexes the documents' token streams. It may be called once per
// index; rebuilding means constructing a fresh Index.
func (idx *Index) Build(docs []Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.docLengths = make([]int, len(docs))
	for i := range docs {
		tokens := docs[i].Tokens
		idx.docLengths[i] = len(tokens)
		idx.totalLength += int64(len(tokens))

		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		for t, count := range tf {
			idx.inverted[t] = append(idx.inverted[t], posting{doc: i, count: count})
		}
	}
}

// WeightedTerm is a query token with a weight. Expanded variants carry a
// weight below 1 so they broaden recall without dominating exact matches.
type WeightedTerm struct {
	Term   string
	Weight float64
}

// Score runs BM25 over the weighted query terms, returning doc ordinal to
// accumulated score for every document that matched at least one term.
func (idx *Index) Score(terms []WeightedTerm) map[int]float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[int]float64)
	docCount := len(idx.docLengths)
	if docCount == 0 {
		return scores
	}
	avgDL := float64(idx.totalLength) / float64(docCount)
	if avgDL == 0 {
		return scores
	}

	for _, wt := range terms {
		postings, ok := idx.inverted[wt.Term]
		if !ok {
			continue
		}
		idf := idx.computeIDF(len(postings))
		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.docLengths[p.doc])

			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[p.doc] += wt.Weight * idf * (num / denom)
		}
	}
	return scores
}

func (idx *Index) computeIDF(df int) float64 {
	// IDF = log(1 + (N - n + 0.5) / (n + 0.5))
	N := float64(len(idx.docLengths))
	n := float64(df)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}
