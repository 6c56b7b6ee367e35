package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/space"
)

func TestCreateSpace(t *testing.T) {
	db := newCacheDB(t)

	require.NoError(t, db.CreateSpace("staging"))
	// Creating an existing space is a no-op.
	require.NoError(t, db.CreateSpace("staging"))

	ok, err := db.SpaceExists("staging")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.SpaceExists("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSpacesAppearOnFirstWrite(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("implicit", "k", "v")
	require.NoError(t, err)

	names, err := db.ListSpaces()
	require.NoError(t, err)
	assert.Contains(t, names, "implicit")
}

func TestDeleteSpace(t *testing.T) {
	db := newCacheDB(t)

	require.NoError(t, db.CreateSpace("empty"))
	require.NoError(t, db.DeleteSpace("empty"))

	ok, err := db.SpaceExists("empty")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, db.DeleteSpace("empty"), ErrNotFound)
}

func TestDeleteSpaceRefusesNonEmpty(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("full", "k", "v")
	require.NoError(t, err)

	assert.ErrorIs(t, db.DeleteSpace("full"), ErrConstraint)

	require.NoError(t, db.ForceDeleteSpace("full"))
	ok, err := db.SpaceExists("full")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSpace(t *testing.T) {
	db := newCacheDB(t)

	require.NoError(t, db.CreateSpace("work"))
	require.NoError(t, db.SetSpace("work"))
	assert.Equal(t, "work", db.CurrentSpace())

	// "" now resolves to the selected space.
	_, err := db.Put("", "k", "in-work")
	require.NoError(t, err)
	v, ok, err := db.Get("work", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "in-work", v)

	// Switching to a not-yet-existing space is fine; it appears on first
	// write. An empty name is not.
	assert.NoError(t, db.SetSpace("lazy"))
	assert.ErrorIs(t, db.SetSpace(""), ErrValidation)
}

func TestDeleteCurrentSpaceResetsSelection(t *testing.T) {
	db := newCacheDB(t)

	require.NoError(t, db.CreateSpace("temp"))
	require.NoError(t, db.SetSpace("temp"))
	require.NoError(t, db.DeleteSpace("temp"))

	assert.Equal(t, space.Default, db.CurrentSpace())
}

func TestSpaceInfo(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("work", "a", 1)
	require.NoError(t, err)
	_, err = db.StateSet("work", "b", 2)
	require.NoError(t, err)

	stats, err := db.SpaceInfo("work")
	require.NoError(t, err)
	assert.Equal(t, "work", stats.Name)
	assert.Equal(t, 2, stats.TotalKeys)

	_, err = db.SpaceInfo("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
