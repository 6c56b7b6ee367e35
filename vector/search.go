package vector

import (
	"sort"

	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/metadata"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
)

// Match is one ranked search result. Metadata is null when the record was
// stored without any.
type Match struct {
	Key      string      `json:"key"`
	Score    float32     `json:"score"`
	Metadata value.Value `json:"metadata,omitempty"`
}

// SearchOptions tunes a single search call.
type SearchOptions struct {
	// Metric overrides the collection's configured metric when non-nil.
	Metric *distance.Metric
	// Filter restricts candidates before top-k selection.
	Filter *metadata.FilterSet
	// AsOf scopes the search to records visible at that time (0 for now).
	AsOf uint64
}

// Search returns the k best matches for query, highest score first, ties
// broken by insertion order. Filtered-out candidates never consume a slot
// of the top-k.
func (s *Store) Search(collection string, query []float32, k int, opts SearchOptions) ([]Match, error) {
	s.mu.RLock()
	c, err := s.collection(collection)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if err := c.validateVector(query); err != nil {
		return nil, err
	}

	metric := c.metric
	if opts.Metric != nil {
		metric = *opts.Metric
	}
	score, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	// The inverted index can narrow equality-style filters, but it only
	// tracks current metadata, so time-travel searches always scan.
	var allowed map[string]struct{}
	if opts.AsOf == 0 && opts.Filter != nil {
		if bm, ok := c.metaIdx.Candidates(opts.Filter); ok {
			allowed = make(map[string]struct{}, bm.GetCardinality())
			s.mu.RLock()
			it := bm.Iterator()
			for it.HasNext() {
				if key, known := c.byRow[it.Next()]; known {
					allowed[key] = struct{}{}
				}
			}
			s.mu.RUnlock()
		}
	}

	type scored struct {
		match Match
		row   uint32
	}
	var candidates []scored

	c.recs.Range(func(key string, recs []store.Record[Entry]) bool {
		if allowed != nil {
			if _, ok := allowed[key]; !ok {
				return true
			}
		}
		rec, visible := recordAt(recs, opts.AsOf)
		if !visible {
			return true
		}
		if opts.Filter != nil && !opts.Filter.Matches(rec.Value.Metadata) {
			return true
		}
		s.mu.RLock()
		row := c.rows[key]
		s.mu.RUnlock()
		m := Match{Key: key, Score: score(query, rec.Value.Embedding), Metadata: rec.Value.Metadata}
		candidates = append(candidates, scored{match: m, row: row})
		return true
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		return candidates[i].row < candidates[j].row
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Match, len(candidates))
	for i, cand := range candidates {
		out[i] = cand.match
	}
	return out, nil
}

// recordAt resolves the record visible at asOf from a history slice.
func recordAt(recs []store.Record[Entry], asOf uint64) (store.Record[Entry], bool) {
	for i := len(recs) - 1; i >= 0; i-- {
		if asOf != 0 && recs[i].Timestamp > asOf {
			continue
		}
		if recs[i].Tombstone {
			return store.Record[Entry]{}, false
		}
		return recs[i], true
	}
	return store.Record[Entry]{}, false
}
