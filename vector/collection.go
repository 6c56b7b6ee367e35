// Package vector implements the per-space vector similarity index.
//
// Every collection stores one versioned record per key through the same
// history mechanism as the other primitives, so asOf reads expose both the
// embedding and the metadata as they were at that time. The index itself is
// flat (exact search); candidates pass the metadata filter before top-k
// selection, never after.
package vector

import (
	"math"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/metadata"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
)

// IndexTypeFlat is the only index layout currently implemented.
const IndexTypeFlat = "flat"

// CollectionInfo describes a collection and its current stats.
type CollectionInfo struct {
	Name        string          `json:"name"`
	Dimension   int             `json:"dimension"`
	Metric      distance.Metric `json:"metric"`
	IndexType   string          `json:"indexType"`
	Count       int             `json:"count"`
	MemoryBytes uint64          `json:"memoryBytes"`
}

// Entry is the stored per-key payload: the embedding plus optional metadata.
type Entry struct {
	Embedding []float32   `json:"embedding"`
	Metadata  value.Value `json:"metadata"`
}

func cloneEntry(e Entry) Entry {
	emb := make([]float32, len(e.Embedding))
	copy(emb, e.Embedding)
	return Entry{Embedding: emb, Metadata: e.Metadata.Clone()}
}

// Record is the caller-visible versioned vector record.
type Record struct {
	Key       string      `json:"key"`
	Embedding []float32   `json:"embedding"`
	Metadata  value.Value `json:"metadata"`
	Version   uint64      `json:"version"`
	Timestamp uint64      `json:"timestamp"`
}

// Collection holds the records and filter index for one named collection.
type Collection struct {
	name      string
	dimension int
	metric    distance.Metric
	createdAt clock.Stamp

	recs *store.Store[Entry]

	// Row ids are dense per-collection handles used by the inverted index
	// postings; they are assigned on first upsert of a key and never reused.
	rows    map[string]uint32
	byRow   map[uint32]string
	nextRow uint32
	metaIdx *metadata.InvertedIndex
}

func newCollection(name string, dimension int, metric distance.Metric, clk *clock.Clock, st clock.Stamp) *Collection {
	return &Collection{
		name:      name,
		dimension: dimension,
		metric:    metric,
		createdAt: st,
		recs:      store.New[Entry](clk, cloneEntry),
		rows:      make(map[string]uint32),
		byRow:     make(map[uint32]string),
		metaIdx:   metadata.NewInvertedIndex(),
	}
}

// Info returns the collection's descriptor with current stats.
func (c *Collection) Info() CollectionInfo {
	count := c.recs.Len()
	return CollectionInfo{
		Name:        c.name,
		Dimension:   c.dimension,
		Metric:      c.metric,
		IndexType:   IndexTypeFlat,
		Count:       count,
		MemoryBytes: uint64(count) * uint64(c.dimension) * 4,
	}
}

// validateVector rejects wrong-length and non-finite vectors before any
// mutation or comparison happens.
func (c *Collection) validateVector(vec []float32) error {
	if len(vec) != c.dimension {
		return &DimensionError{Collection: c.name, Expected: c.dimension, Actual: len(vec)}
	}
	for i, f := range vec {
		if f64 := float64(f); math.IsNaN(f64) || math.IsInf(f64, 0) {
			return &NotFiniteError{Index: i}
		}
	}
	return nil
}

func (c *Collection) upsert(key string, vec []float32, meta value.Value) (clock.Stamp, error) {
	if err := c.validateVector(vec); err != nil {
		return clock.Stamp{}, err
	}
	row, known := c.rows[key]
	var oldMeta value.Value
	if known {
		if prev, ok := c.recs.Latest(key); ok && !prev.Tombstone {
			oldMeta = prev.Value.Metadata
		}
	} else {
		row = c.nextRow
		c.nextRow++
		c.rows[key] = row
		c.byRow[row] = key
	}
	st := c.recs.Put(key, Entry{Embedding: vec, Metadata: meta})
	c.metaIdx.Update(row, oldMeta, meta)
	return st, nil
}

func (c *Collection) get(key string, asOf uint64) (Record, bool) {
	rec, ok := c.recs.GetVersioned(key, asOf)
	if !ok {
		return Record{}, false
	}
	return Record{
		Key:       key,
		Embedding: rec.Value.Embedding,
		Metadata:  rec.Value.Metadata,
		Version:   rec.Version,
		Timestamp: rec.Timestamp,
	}, true
}

func (c *Collection) delete(key string) bool {
	prev, ok := c.recs.Latest(key)
	if !ok || prev.Tombstone {
		return false
	}
	if !c.recs.Delete(key) {
		return false
	}
	if row, known := c.rows[key]; known {
		c.metaIdx.Remove(row, prev.Value.Metadata)
	}
	return true
}
