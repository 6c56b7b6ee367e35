package vector

import (
	"fmt"
	"sort"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
)

// CollectionState is a collection definition with its creation stamp, enough
// to recreate the collection shell during snapshot recovery.
type CollectionState struct {
	Name      string          `json:"name"`
	Dimension int             `json:"dimension"`
	Metric    distance.Metric `json:"metric"`
	CreatedAt clock.Stamp     `json:"createdAt"`
}

// Collections returns every collection's definition, sorted by name.
func (s *Store) Collections() []CollectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CollectionState, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, CollectionState{
			Name:      c.name,
			Dimension: c.dimension,
			Metric:    c.metric,
			CreatedAt: c.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ForEachHistory walks one collection's full per-key histories, tombstones
// included, in key order.
func (s *Store) ForEachHistory(collection string, fn func(key string, recs []store.Record[Entry]) bool) error {
	s.mu.RLock()
	c, err := s.collection(collection)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	c.recs.Range(fn)
	return nil
}

// RestoreCollection recreates a collection shell from its saved definition.
func (s *Store) RestoreCollection(cs CollectionState) error {
	if cs.Dimension <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, cs.Dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[cs.Name]; exists {
		return fmt.Errorf("%w: %q", ErrCollectionExists, cs.Name)
	}
	s.collections[cs.Name] = newCollection(cs.Name, cs.Dimension, cs.Metric, s.clk, cs.CreatedAt)
	return nil
}

// RestoreHistory replays one key's saved records in order, rebuilding the
// row handle and the metadata index from the newest live record.
func (s *Store) RestoreHistory(collection, key string, recs []store.Record[Entry]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	row, known := c.rows[key]
	if !known {
		row = c.nextRow
		c.nextRow++
		c.rows[key] = row
		c.byRow[row] = key
	}
	for _, rec := range recs {
		rec.Value = cloneEntry(rec.Value)
		c.recs.PutRecord(key, rec)
	}
	last := recs[len(recs)-1]
	if !last.Tombstone {
		c.metaIdx.Update(row, value.Null(), last.Value.Metadata)
	}
	return nil
}
