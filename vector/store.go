package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
)

// BatchEntry is one item of a batch upsert.
type BatchEntry struct {
	Key      string
	Vector   []float32
	Metadata value.Value
}

// Store holds the vector collections of one space.
type Store struct {
	mu          sync.RWMutex
	clk         *clock.Clock
	collections map[string]*Collection
}

// NewStore creates an empty vector store bound to the branch clock.
func NewStore(clk *clock.Clock) *Store {
	return &Store{
		clk:         clk,
		collections: make(map[string]*Collection),
	}
}

// CreateCollection registers a new collection with a fixed dimension and
// default metric.
func (s *Store) CreateCollection(name string, dimension int, metric distance.Metric) (clock.Stamp, error) {
	if dimension <= 0 {
		return clock.Stamp{}, fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return clock.Stamp{}, fmt.Errorf("%w: %q", ErrCollectionExists, name)
	}
	st := s.clk.Tick()
	s.collections[name] = newCollection(name, dimension, metric, s.clk, st)
	return st, nil
}

// DeleteCollection removes a collection and all its records.
func (s *Store) DeleteCollection(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; !exists {
		return false
	}
	delete(s.collections, name)
	return true
}

// ListCollections returns descriptors for every collection, sorted by name.
func (s *Store) ListCollections() []CollectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CollectionInfo, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) collection(name string) (*Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Upsert stores or replaces the record for key.
func (s *Store) Upsert(collection, key string, vec []float32, meta value.Value) (clock.Stamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return clock.Stamp{}, err
	}
	return c.upsert(key, vec, meta)
}

// BatchUpsert applies all entries or none: every vector is validated before
// the first write happens.
func (s *Store) BatchUpsert(collection string, entries []BatchEntry) ([]clock.Stamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := c.validateVector(e.Vector); err != nil {
			return nil, err
		}
	}
	stamps := make([]clock.Stamp, 0, len(entries))
	for _, e := range entries {
		st, err := c.upsert(e.Key, e.Vector, e.Metadata)
		if err != nil {
			// Unreachable after pre-validation; surface it regardless.
			return nil, err
		}
		stamps = append(stamps, st)
	}
	return stamps, nil
}

// ValidateVector checks an embedding against a collection's dimension and
// finiteness rules without writing anything.
func (s *Store) ValidateVector(collection string, vec []float32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	return c.validateVector(vec)
}

// Get returns the record for key as visible at asOf (0 for now).
func (s *Store) Get(collection, key string, asOf uint64) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(collection)
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := c.get(key, asOf)
	return rec, ok, nil
}

// Delete tombstones the record for key.
func (s *Store) Delete(collection, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return false, err
	}
	return c.delete(key), nil
}

// Stats returns the collection descriptor with current counts.
func (s *Store) Stats(collection string) (CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(collection)
	if err != nil {
		return CollectionInfo{}, err
	}
	return c.Info(), nil
}

// Dimension returns the fixed dimension of a collection.
func (s *Store) Dimension(collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.dimension, nil
}

// Len returns the total number of live records across all collections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, c := range s.collections {
		total += c.recs.Len()
	}
	return total
}

// TimeRange returns the oldest and latest record timestamps across all
// collections, or (0, 0) when empty.
func (s *Store) TimeRange() (oldest, latest uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		o, l := c.recs.TimeRange()
		if o != 0 && (oldest == 0 || o < oldest) {
			oldest = o
		}
		if l > latest {
			latest = l
		}
	}
	return oldest, latest
}

// Prune applies the retention policy to every collection's record history.
func (s *Store) Prune(policy store.RetentionPolicy, now uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dropped := 0
	for _, c := range s.collections {
		dropped += c.recs.Prune(policy, now)
	}
	return dropped
}

// CopyCurrentInto recreates every collection in dst and copies the latest
// live record per key, returning the number of keys copied.
func (s *Store) CopyCurrentInto(dst *Store) int {
	s.mu.RLock()
	infos := make([]*Collection, 0, len(s.collections))
	for _, c := range s.collections {
		infos = append(infos, c)
	}
	s.mu.RUnlock()

	copied := 0
	for _, src := range infos {
		dst.mu.Lock()
		dc, exists := dst.collections[src.name]
		if !exists {
			st := dst.clk.Tick()
			dc = newCollection(src.name, src.dimension, src.metric, dst.clk, st)
			dst.collections[src.name] = dc
		}
		dst.mu.Unlock()

		src.recs.Range(func(key string, recs []store.Record[Entry]) bool {
			if len(recs) == 0 {
				return true
			}
			last := recs[len(recs)-1]
			if last.Tombstone {
				return true
			}
			dst.mu.Lock()
			row, known := dc.rows[key]
			if !known {
				row = dc.nextRow
				dc.nextRow++
				dc.rows[key] = row
				dc.byRow[row] = key
			}
			last.Value = cloneEntry(last.Value)
			dc.recs.PutRecord(key, last)
			dc.metaIdx.Update(row, value.Null(), last.Value.Metadata)
			dst.mu.Unlock()
			copied++
			return true
		})
	}
	return copied
}

// ForEachCurrent walks every collection's live records, for search and diff.
func (s *Store) ForEachCurrent(fn func(collection string, rec Record) bool) {
	s.mu.RLock()
	cols := make([]*Collection, 0, len(s.collections))
	for _, c := range s.collections {
		cols = append(cols, c)
	}
	s.mu.RUnlock()
	sort.Slice(cols, func(i, j int) bool { return cols[i].name < cols[j].name })

	for _, c := range cols {
		stop := false
		c.recs.Range(func(key string, recs []store.Record[Entry]) bool {
			if len(recs) == 0 {
				return true
			}
			last := recs[len(recs)-1]
			if last.Tombstone {
				return true
			}
			if !fn(c.name, Record{
				Key:       key,
				Embedding: last.Value.Embedding,
				Metadata:  last.Value.Metadata,
				Version:   last.Version,
				Timestamp: last.Timestamp,
			}) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// Metric returns a collection's configured metric.
func (s *Store) Metric(collection string) (distance.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.metric, nil
}
