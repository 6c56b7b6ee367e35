package strata

import (
	"time"

	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/metadata"
	"github.com/stratadb/strata/txn"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// CollectionInfo describes a vector collection and its current stats.
type CollectionInfo = vector.CollectionInfo

// VectorRecord is a versioned vector read result.
type VectorRecord struct {
	Key       string    `json:"key"`
	Embedding []float32 `json:"embedding"`
	Metadata  any       `json:"metadata"`
	Version   uint64    `json:"version"`
	Timestamp uint64    `json:"timestamp"`
}

// VectorEntry is one item of a batch upsert.
type VectorEntry struct {
	Key       string
	Embedding []float32
	Metadata  any
}

// VectorMatch is one search hit, best first.
type VectorMatch struct {
	Key      string  `json:"key"`
	Score    float32 `json:"score"`
	Metadata any     `json:"metadata"`
}

// VectorSearchOptions shapes a similarity search.
type VectorSearchOptions struct {
	// Metric overrides the collection's metric for this query ("" keeps it).
	Metric string
	// Filter restricts candidates by metadata before top-k selection.
	Filter *metadata.FilterSet
	// AsOf scopes the search to records visible at that time (0 for now).
	AsOf uint64
}

// CreateCollection registers a vector collection with a fixed dimension and
// metric ("cosine", "euclidean", or "dot_product"; "" means cosine).
func (db *DB) CreateCollection(space, name string, dimension int, metric string) (Stamp, error) {
	if err := db.check(); err != nil {
		return Stamp{}, err
	}
	m := distance.MetricCosine
	if metric != "" {
		var err error
		if m, err = distance.ParseMetric(metric); err != nil {
			db.metrics.RecordWrite(err)
			return Stamp{}, validation("%v", err)
		}
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	st, err := sp.Vector.CreateCollection(name, dimension, m)
	err = translateError(err)
	db.metrics.RecordWrite(err)
	return st, err
}

// DeleteCollection removes a collection and all its records.
func (db *DB) DeleteCollection(space, name string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, err
	}
	ok := sp.Vector.DeleteCollection(name)
	db.metrics.RecordWrite(nil)
	return ok, nil
}

// ListCollections returns descriptors for the space's collections, sorted by
// name.
func (db *DB) ListCollections(space string) ([]CollectionInfo, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return nil, err
	}
	infos := sp.Vector.ListCollections()
	db.metrics.RecordRead(nil)
	return infos, nil
}

// VectorUpsert stores or replaces a vector record. The embedding must match
// the collection's dimension and contain only finite values. Buffered inside
// an active transaction.
func (db *DB) VectorUpsert(space, collection, key string, embedding []float32, meta any) (Stamp, error) {
	if err := db.check(); err != nil {
		return Stamp{}, err
	}
	metaVal, err := value.FromNative(meta)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, validation("%v", err)
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{
			Kind: txn.OpVectorUpsert, Space: sp.Name,
			Collection: collection, Key: key, Embedding: embedding, Metadata: metaVal,
		}))
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	st, err := sp.Vector.Upsert(collection, key, embedding, metaVal)
	err = translateError(err)
	db.metrics.RecordWrite(err)
	return st, err
}

// VectorBatchUpsert applies all entries or none: every embedding is
// validated before the first write happens.
func (db *DB) VectorBatchUpsert(space, collection string, entries []VectorEntry) ([]Stamp, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return nil, err
	}
	batch := make([]vector.BatchEntry, len(entries))
	for i, e := range entries {
		metaVal, err := value.FromNative(e.Metadata)
		if err != nil {
			db.metrics.RecordWrite(err)
			return nil, validation("entry %d: %v", i, err)
		}
		batch[i] = vector.BatchEntry{Key: e.Key, Vector: e.Embedding, Metadata: metaVal}
	}
	stamps, err := sp.Vector.BatchUpsert(collection, batch)
	err = translateError(err)
	db.metrics.RecordWrite(err)
	return stamps, err
}

// VectorGet reads a vector record as of asOf (0 for now).
func (db *DB) VectorGet(space, collection, key string, asOf uint64) (VectorRecord, bool, error) {
	if err := db.check(); err != nil {
		return VectorRecord{}, false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return VectorRecord{}, false, err
	}
	rec, ok, err := sp.Vector.Get(collection, key, asOf)
	err = translateError(err)
	db.metrics.RecordRead(err)
	if err != nil || !ok {
		return VectorRecord{}, false, err
	}
	return VectorRecord{
		Key:       rec.Key,
		Embedding: rec.Embedding,
		Metadata:  rec.Metadata.ToNative(),
		Version:   rec.Version,
		Timestamp: rec.Timestamp,
	}, true, nil
}

// VectorDelete tombstones a vector record. Buffered inside an active
// transaction.
func (db *DB) VectorDelete(space, collection, key string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{
			Kind: txn.OpVectorDelete, Space: sp.Name, Collection: collection, Key: key,
		}))
		db.metrics.RecordWrite(err)
		return err == nil, err
	}
	ok, err := sp.Vector.Delete(collection, key)
	err = translateError(err)
	db.metrics.RecordWrite(err)
	return ok, err
}

// VectorSearch returns the k most similar records, best first. Scores
// follow the metric's higher-is-better convention; euclidean scores are
// negated L2 distances.
func (db *DB) VectorSearch(space, collection string, query []float32, k int, opts VectorSearchOptions) ([]VectorMatch, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	start := time.Now()
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordSearch(time.Since(start), err)
		return nil, err
	}

	var searchOpts vector.SearchOptions
	if opts.Metric != "" {
		m, err := distance.ParseMetric(opts.Metric)
		if err != nil {
			db.metrics.RecordSearch(time.Since(start), err)
			return nil, validation("%v", err)
		}
		searchOpts.Metric = &m
	}
	searchOpts.Filter = opts.Filter
	searchOpts.AsOf = opts.AsOf

	matches, err := sp.Vector.Search(collection, query, k, searchOpts)
	err = translateError(err)
	db.metrics.RecordSearch(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, len(matches))
	for i, m := range matches {
		out[i] = VectorMatch{Key: m.Key, Score: m.Score, Metadata: m.Metadata.ToNative()}
	}
	return out, nil
}

// VectorStats returns a collection's descriptor with current counts.
func (db *DB) VectorStats(space, collection string) (CollectionInfo, error) {
	if err := db.check(); err != nil {
		return CollectionInfo{}, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return CollectionInfo{}, err
	}
	info, err := sp.Vector.Stats(collection)
	err = translateError(err)
	db.metrics.RecordRead(err)
	return info, err
}
