package search

import (
	"fmt"
	"sort"

	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/value"
)

// Mode selects which retrieval passes run.
type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeVector  Mode = "vector"
	ModeHybrid  Mode = "hybrid"
)

// ParseMode maps a mode name to a Mode. Empty defaults to hybrid.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeHybrid):
		return ModeHybrid, nil
	case string(ModeKeyword):
		return ModeKeyword, nil
	case string(ModeVector):
		return ModeVector, nil
	default:
		return "", fmt.Errorf("unknown search mode: %q", s)
	}
}

const defaultLimit = 10

// Fusion weights for hybrid mode. Each pass is max-normalized before fusing
// so the weights compare like with like.
const (
	keywordWeight = 0.5
	vectorWeight  = 0.5
)

// Options narrows and shapes a search.
type Options struct {
	Mode        Mode
	Limit       int
	Spaces      []string
	Primitives  []string
	Collections []string
	// Expansion and reranking are on by default; the flags switch the
	// passes off.
	DisableExpand bool
	DisableRerank bool
	// SinceMicros/UntilMicros restrict results to documents stamped inside
	// the window. Zero means unbounded on that side.
	SinceMicros uint64
	UntilMicros uint64
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return defaultLimit
	}
	return o.Limit
}

func (o Options) wantSpace(name string) bool      { return contains(o.Spaces, name) }
func (o Options) wantPrimitive(name string) bool  { return contains(o.Primitives, name) }
func (o Options) wantCollection(name string) bool { return contains(o.Collections, name) }

func (o Options) inTimeRange(ts uint64) bool {
	if o.SinceMicros != 0 && ts < o.SinceMicros {
		return false
	}
	if o.UntilMicros != 0 && ts > o.UntilMicros {
		return false
	}
	return true
}

func contains(set []string, name string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// Result is one ranked hit. Rank starts at 1.
type Result struct {
	Rank      int         `json:"rank"`
	Score     float64     `json:"score"`
	Space     string      `json:"space"`
	Primitive string      `json:"primitive"`
	Key       string      `json:"key"`
	Snippet   string      `json:"snippet"`
	Payload   value.Value `json:"payload"`
	Version   uint64      `json:"version"`
	Timestamp uint64      `json:"timestamp"`
}

// Run executes a search over the branch's spaces and returns ranked results.
// An empty query matches nothing.
func Run(spaces []*space.Space, query string, opts Options) ([]Result, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	c := collect(spaces, opts)
	if len(c.docs) == 0 {
		return nil, nil
	}

	combined := make(map[int]float64)
	if mode == ModeKeyword || mode == ModeHybrid {
		terms := Expand(tokens)
		if opts.DisableExpand {
			terms = Exact(tokens)
		}
		idx := NewIndex()
		idx.Build(c.docs)
		merge(combined, idx.Score(terms), keywordWeightFor(mode))
	}
	if mode == ModeVector || mode == ModeHybrid {
		merge(combined, vectorPass(c, tokens), vectorWeightFor(mode))
	}
	if len(combined) == 0 {
		return nil, nil
	}

	if !opts.DisableRerank {
		Rerank(tokens, c.docs, combined)
	}

	ordinals := make([]int, 0, len(combined))
	for doc := range combined {
		ordinals = append(ordinals, doc)
	}
	sort.Slice(ordinals, func(i, j int) bool {
		a, bOrd := ordinals[i], ordinals[j]
		if combined[a] != combined[bOrd] {
			return combined[a] > combined[bOrd]
		}
		return lessDocID(c.docs[a].ID, c.docs[bOrd].ID)
	})
	if len(ordinals) > opts.limit() {
		ordinals = ordinals[:opts.limit()]
	}

	results := make([]Result, len(ordinals))
	for i, doc := range ordinals {
		d := &c.docs[doc]
		results[i] = Result{
			Rank:      i + 1,
			Score:     combined[doc],
			Space:     d.ID.Space,
			Primitive: d.ID.Primitive,
			Key:       d.ID.Key,
			Snippet:   Snippet(tokens, d.Text),
			Payload:   d.Payload,
			Version:   d.Version,
			Timestamp: d.Timestamp,
		}
	}
	return results, nil
}

func keywordWeightFor(m Mode) float64 {
	if m == ModeHybrid {
		return keywordWeight
	}
	return 1
}

func vectorWeightFor(m Mode) float64 {
	if m == ModeHybrid {
		return vectorWeight
	}
	return 1
}

// vectorPass scores every live vector record against a feature-hashed query
// embedding of the record's collection dimension, using cosine similarity.
// Hashed query embeddings only carry signal against embeddings produced the
// same way, so scores below zero are dropped.
func vectorPass(c *corpus, tokens []string) map[int]float64 {
	scores := make(map[int]float64)
	queries := make(map[int][]float32)
	for _, vd := range c.vectors {
		dim := len(vd.embedding)
		q, ok := queries[dim]
		if !ok {
			q = Embed(tokens, dim)
			queries[dim] = q
		}
		score := float64(distance.Cosine(q, vd.embedding))
		if score > 0 {
			scores[vd.doc] = score
		}
	}
	return scores
}

// merge folds max-normalized pass scores into the combined map.
func merge(dst map[int]float64, src map[int]float64, weight float64) {
	var max float64
	for _, s := range src {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return
	}
	for doc, s := range src {
		dst[doc] += weight * (s / max)
	}
}

func lessDocID(a, b DocID) bool {
	if a.Space != b.Space {
		return a.Space < b.Space
	}
	if a.Primitive != b.Primitive {
		return a.Primitive < b.Primitive
	}
	return a.Key < b.Key
}
