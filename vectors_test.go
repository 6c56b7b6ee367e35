package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/metadata"
	"github.com/stratadb/strata/value"
)

func TestCreateCollection(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 3, "")
	require.NoError(t, err)

	// Duplicate names are a state error.
	_, err = db.CreateCollection("", "docs", 3, "cosine")
	assert.ErrorIs(t, err, ErrState)

	// Unknown metric is a validation error; a non-positive dimension
	// breaks the collection schema.
	_, err = db.CreateCollection("", "other", 3, "manhattan")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = db.CreateCollection("", "other", 0, "cosine")
	assert.ErrorIs(t, err, ErrConstraint)

	infos, err := db.ListCollections("")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "docs", infos[0].Name)
	assert.Equal(t, 3, infos[0].Dimension)
}

func TestDeleteCollection(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 3, "")
	require.NoError(t, err)

	ok, err := db.DeleteCollection("", "docs")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.DeleteCollection("", "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = db.VectorUpsert("", "docs", "k", []float32{1, 0, 0}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVectorUpsertGet(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 3, "")
	require.NoError(t, err)

	st, err := db.VectorUpsert("", "docs", "v1", []float32{1, 0, 0},
		map[string]any{"lang": "go"})
	require.NoError(t, err)

	rec, ok, err := db.VectorGet("", "docs", "v1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0, 0}, rec.Embedding)
	assert.Equal(t, st.Version, rec.Version)
	meta, isMap := rec.Metadata.(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, "go", meta["lang"])

	// Replacing keeps history reachable via asOf.
	_, err = db.VectorUpsert("", "docs", "v1", []float32{0, 1, 0}, nil)
	require.NoError(t, err)

	rec, ok, err = db.VectorGet("", "docs", "v1", st.Timestamp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0, 0}, rec.Embedding)
}

func TestVectorUpsertValidation(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 3, "")
	require.NoError(t, err)

	// Wrong dimension violates the collection schema.
	_, err = db.VectorUpsert("", "docs", "v", []float32{1, 0}, nil)
	assert.ErrorIs(t, err, ErrConstraint)
	assert.NotErrorIs(t, err, ErrValidation)

	// So does a non-finite component.
	nan := float32(0)
	nan /= nan
	_, err = db.VectorUpsert("", "docs", "v", []float32{nan, 0, 0}, nil)
	assert.ErrorIs(t, err, ErrConstraint)

	// Unknown collection.
	_, err = db.VectorUpsert("", "ghost", "v", []float32{1, 0, 0}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVectorBatchUpsertAllOrNothing(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 2, "")
	require.NoError(t, err)

	_, err = db.VectorBatchUpsert("", "docs", []VectorEntry{
		{Key: "good", Embedding: []float32{1, 0}},
		{Key: "bad", Embedding: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, ErrConstraint)

	// Nothing from the failed batch landed.
	_, ok, err := db.VectorGet("", "docs", "good", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	stamps, err := db.VectorBatchUpsert("", "docs", []VectorEntry{
		{Key: "a", Embedding: []float32{1, 0}},
		{Key: "b", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)
	assert.Len(t, stamps, 2)
}

func TestVectorDelete(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 2, "")
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "v", []float32{1, 0}, nil)
	require.NoError(t, err)

	ok, err := db.VectorDelete("", "docs", "v")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := db.VectorGet("", "docs", "v", 0)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = db.VectorDelete("", "docs", "v")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVectorSearch(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 2, "cosine")
	require.NoError(t, err)

	_, err = db.VectorUpsert("", "docs", "east", []float32{1, 0},
		map[string]any{"region": "east"})
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "north", []float32{0, 1},
		map[string]any{"region": "north"})
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "northeast", []float32{1, 1},
		map[string]any{"region": "east"})
	require.NoError(t, err)

	matches, err := db.VectorSearch("", "docs", []float32{1, 0}, 2, VectorSearchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Key)
	assert.Equal(t, "northeast", matches[1].Key)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestVectorSearchFilter(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 2, "cosine")
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "east", []float32{1, 0},
		map[string]any{"region": "east"})
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "north", []float32{0, 1},
		map[string]any{"region": "north"})
	require.NoError(t, err)

	matches, err := db.VectorSearch("", "docs", []float32{0, 1}, 10, VectorSearchOptions{
		Filter: metadata.NewFilterSet(metadata.Eq("region", value.String("east"))),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "east", matches[0].Key)
}

func TestVectorSearchMetricOverride(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 2, "cosine")
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "near", []float32{1, 1}, nil)
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "far", []float32{10, 10}, nil)
	require.NoError(t, err)

	// Cosine sees both as identical directions; euclidean separates them.
	matches, err := db.VectorSearch("", "docs", []float32{1, 1}, 2, VectorSearchOptions{
		Metric: "euclidean",
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].Key)

	_, err = db.VectorSearch("", "docs", []float32{1, 1}, 2, VectorSearchOptions{
		Metric: "chebyshev",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVectorSearchAsOf(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 2, "cosine")
	require.NoError(t, err)
	st, err := db.VectorUpsert("", "docs", "old", []float32{1, 0}, nil)
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "new", []float32{1, 0}, nil)
	require.NoError(t, err)

	matches, err := db.VectorSearch("", "docs", []float32{1, 0}, 10, VectorSearchOptions{
		AsOf: st.Timestamp,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "old", matches[0].Key)
}

func TestVectorStats(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.CreateCollection("", "docs", 4, "dot_product")
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "v1", []float32{1, 0, 0, 0}, nil)
	require.NoError(t, err)

	info, err := db.VectorStats("", "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Name)
	assert.Equal(t, 4, info.Dimension)
	assert.Equal(t, 1, info.Count)

	_, err = db.VectorStats("", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
