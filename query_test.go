package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/search"
)

func seedSearchData(t *testing.T, db *DB) {
	t.Helper()
	_, err := db.Put("", "release-notes", "payment service released to production")
	require.NoError(t, err)
	_, err = db.Put("", "lunch-menu", "tomato soup and bread")
	require.NoError(t, err)
	_, err = db.StateSet("", "rollout", "payment rollout at fifty percent")
	require.NoError(t, err)
	_, err = db.EventAppend("", "deploy.done", "payment service deployed")
	require.NoError(t, err)
}

func TestSearchKeyword(t *testing.T) {
	db := newCacheDB(t)
	seedSearchData(t, db)

	results, err := db.Search("payment", SearchOptions{Mode: search.ModeKeyword})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.NotEqual(t, "lunch-menu", r.Key)
	}
}

func TestSearchPrimitiveFilter(t *testing.T) {
	db := newCacheDB(t)
	seedSearchData(t, db)

	results, err := db.Search("payment", SearchOptions{
		Mode:       search.ModeKeyword,
		Primitives: []string{search.PrimitiveState},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, search.PrimitiveState, results[0].Primitive)
	assert.Equal(t, "rollout", results[0].Key)
}

func TestSearchScopedToCurrentBranch(t *testing.T) {
	db := newCacheDB(t)
	seedSearchData(t, db)

	require.NoError(t, db.CreateBranch("empty"))
	require.NoError(t, db.Checkout("empty"))

	results, err := db.Search("payment", SearchOptions{Mode: search.ModeKeyword})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	db := newCacheDB(t)
	seedSearchData(t, db)

	results, err := db.Search("  ", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchUnknownMode(t *testing.T) {
	db := newCacheDB(t)
	seedSearchData(t, db)

	_, err := db.Search("payment", SearchOptions{Mode: search.Mode("psychic")})
	assert.ErrorIs(t, err, ErrValidation)
}
