package strata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/blobstore"
	"github.com/stratadb/strata/branch"
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/store"
)

// newCacheDB is the standard in-memory handle for tests. Closed on cleanup.
func newCacheDB(t *testing.T) *DB {
	t.Helper()
	db := Cache()
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCacheDefaults(t *testing.T) {
	db := newCacheDB(t)

	assert.True(t, db.Ping())
	assert.Equal(t, branch.Default, db.CurrentBranch())
	assert.Equal(t, space.Default, db.CurrentSpace())

	info, err := db.Info()
	require.NoError(t, err)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, 1, info.BranchCount)
	assert.Equal(t, branch.Default, info.CurrentBranch)
}

func TestCloseRejectsOperations(t *testing.T) {
	db := Cache()
	require.NoError(t, db.Close())

	assert.False(t, db.Ping())

	_, err := db.Put("", "k", "v")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, err, ErrState)

	_, _, err = db.Get("", "k")
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, db.Close(), ErrClosed)
}

func TestOpenRequiresPathOrBlobStore(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpenFlushReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)

	st, err := db.Put("", "persisted", "value one")
	require.NoError(t, err)
	_, err = db.EventAppend("", "boot", map[string]any{"ok": true})
	require.NoError(t, err)
	_, err = db.ForkBranch(branch.Default, "feature")
	require.NoError(t, err)

	require.NoError(t, db.Flush(context.Background()))
	require.NoError(t, db.Close())

	db2, err := Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	v, ok, err := db2.Get("", "persisted")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value one", v)

	// Version stamps carried over, asOf reads still resolve.
	v, ok, err = db2.GetAsOf("", "persisted", st.Timestamp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value one", v)

	n, err := db2.EventCount("")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	branches, err := db2.ListBranches()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{branch.Default, "feature"}, branches)
}

func TestFlushToMemoryBlobStore(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	db := Cache(WithBlobStore(blobs))
	defer db.Close()

	_, err := db.Put("", "k", "v")
	require.NoError(t, err)
	require.NoError(t, db.Flush(context.Background()))

	names, err := blobs.List(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, names, "strata.snapshot")
}

func TestTimeRange(t *testing.T) {
	db := newCacheDB(t)

	first, err := db.Put("", "a", 1)
	require.NoError(t, err)
	second, err := db.Put("", "b", 2)
	require.NoError(t, err)

	oldest, latest, err := db.TimeRange()
	require.NoError(t, err)
	assert.Equal(t, first.Timestamp, oldest)
	assert.Equal(t, second.Timestamp, latest)
}

func TestCompactPrunesHistory(t *testing.T) {
	db := Cache(WithRetention(store.RetentionPolicy{MaxVersions: 2}))
	defer db.Close()

	for i := 0; i < 10; i++ {
		_, err := db.Put("", "hot", i)
		require.NoError(t, err)
	}

	pruned, err := db.Compact(context.Background())
	require.NoError(t, err)
	assert.Greater(t, pruned, 0)

	// The newest value always survives compaction.
	v, ok, err := db.Get("", "hot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(9), v)
}

func TestBackgroundCompaction(t *testing.T) {
	db := Cache(
		WithRetention(store.RetentionPolicy{MaxVersions: 1}),
		WithCompaction(5*time.Millisecond),
		WithCompactionRate(0),
	)
	defer db.Close()

	for i := 0; i < 5; i++ {
		_, err := db.Put("", "hot", i)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		h, err := db.History("", "hot")
		return err == nil && len(h) == 1
	}, time.Second, 10*time.Millisecond)
}
