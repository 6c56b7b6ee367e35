package strata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/branch"
	"github.com/stratadb/strata/bundle"
)

func TestCreateAndListBranches(t *testing.T) {
	db := newCacheDB(t)

	require.NoError(t, db.CreateBranch("feature"))

	err := db.CreateBranch("feature")
	assert.ErrorIs(t, err, ErrState)

	branches, err := db.ListBranches()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{branch.Default, "feature"}, branches)

	ok, err := db.BranchExists("feature")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := db.GetBranch("feature")
	require.NoError(t, err)
	assert.Equal(t, "feature", info.ID)

	_, err = db.GetBranch("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForkAndCheckout(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "shared", "from-main")
	require.NoError(t, err)

	res, err := db.ForkBranch(branch.Default, "feature")
	require.NoError(t, err)
	assert.Equal(t, 1, res.KeysCopied)

	require.NoError(t, db.Checkout("feature"))
	assert.Equal(t, "feature", db.CurrentBranch())

	// The fork sees the copied value; new writes stay on the fork.
	v, ok, err := db.Get("", "shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "from-main", v)

	_, err = db.Put("", "only-here", "x")
	require.NoError(t, err)

	require.NoError(t, db.Checkout(branch.Default))
	_, ok, err = db.Get("", "only-here")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, db.Checkout("ghost"), ErrNotFound)
}

func TestDiffBranches(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "both", "same")
	require.NoError(t, err)
	_, err = db.Put("", "changed", "v1")
	require.NoError(t, err)

	_, err = db.ForkBranch(branch.Default, "feature")
	require.NoError(t, err)
	require.NoError(t, db.Checkout("feature"))

	_, err = db.Put("", "changed", "v2")
	require.NoError(t, err)
	_, err = db.Put("", "new-key", "x")
	require.NoError(t, err)

	diff, err := db.DiffBranches(branch.Default, "feature")
	require.NoError(t, err)
	assert.Equal(t, 1, diff.Summary.TotalAdded)
	assert.Equal(t, 1, diff.Summary.TotalModified)
	assert.Equal(t, 0, diff.Summary.TotalRemoved)
}

func TestMergeBranches(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "base", "v")
	require.NoError(t, err)
	_, err = db.ForkBranch(branch.Default, "feature")
	require.NoError(t, err)

	require.NoError(t, db.Checkout("feature"))
	_, err = db.Put("", "feature-key", "added")
	require.NoError(t, err)

	res, err := db.MergeBranches("feature", branch.Default, MergeStrict)
	require.NoError(t, err)
	assert.Equal(t, 1, res.KeysApplied)
	assert.Empty(t, res.Conflicts)

	require.NoError(t, db.Checkout(branch.Default))
	v, ok, err := db.Get("", "feature-key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "added", v)
}

func TestMergeStrictConflictAborts(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "contested", "base")
	require.NoError(t, err)
	_, err = db.ForkBranch(branch.Default, "feature")
	require.NoError(t, err)

	require.NoError(t, db.Checkout("feature"))
	_, err = db.Put("", "contested", "feature-side")
	require.NoError(t, err)
	require.NoError(t, db.Checkout(branch.Default))
	_, err = db.Put("", "contested", "main-side")
	require.NoError(t, err)

	_, err = db.MergeBranches("feature", branch.Default, MergeStrict)
	assert.ErrorIs(t, err, ErrConflict)

	// Nothing applied.
	v, ok, err := db.Get("", "contested")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main-side", v)

	// Last-writer-wins applies the source and records the conflict.
	res, err := db.MergeBranches("feature", branch.Default, MergeLastWriterWins)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "contested", res.Conflicts[0].Key)

	v, ok, err = db.Get("", "contested")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "feature-side", v)
}

func TestMergeUnknownStrategy(t *testing.T) {
	db := newCacheDB(t)
	require.NoError(t, db.CreateBranch("feature"))

	_, err := db.MergeBranches("feature", branch.Default, branch.Strategy("theirs"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteBranch(t *testing.T) {
	db := newCacheDB(t)
	require.NoError(t, db.CreateBranch("feature"))

	// The current branch cannot be deleted.
	err := db.DeleteBranch(branch.Default)
	assert.ErrorIs(t, err, ErrState)

	require.NoError(t, db.DeleteBranch("feature"))
	ok, err := db.BranchExists("feature")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, db.DeleteBranch("feature"), ErrNotFound)
}

func TestExportImportBranch(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "k", "v")
	require.NoError(t, err)
	_, err = db.EventAppend("", "made", nil)
	require.NoError(t, err)
	_, err = db.CreateCollection("", "docs", 2, "")
	require.NoError(t, err)
	_, err = db.VectorUpsert("", "docs", "vec", []float32{1, 0}, nil)
	require.NoError(t, err)

	data, err := db.ExportBranch(branch.Default, bundle.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	info, err := db.ValidateBundle(data)
	require.NoError(t, err)
	assert.Equal(t, branch.Default, info.Branch)
	assert.NotZero(t, info.EntryCount)

	n, err := db.ImportBranch("restored", data)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	require.NoError(t, db.Checkout("restored"))
	v, ok, err := db.Get("", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	count, err := db.EventCount("")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	rec, ok, err := db.VectorGet("", "docs", "vec", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, rec.Embedding)
}

func TestExportImportPreservesHistory(t *testing.T) {
	db := newCacheDB(t)

	first, err := db.Put("", "k", "v1")
	require.NoError(t, err)
	_, err = db.Put("", "k", "v2")
	require.NoError(t, err)

	data, err := db.ExportBranch(branch.Default, bundle.Options{})
	require.NoError(t, err)

	_, err = db.ImportBranch("restored", data)
	require.NoError(t, err)
	require.NoError(t, db.Checkout("restored"))

	// Time travel works the same on the imported branch.
	v, ok, err := db.GetAsOf("", "k", first.Timestamp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	v, ok, err = db.GetAsOf("", "k", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestExportImportBranchFile(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "k", "v")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "main.bundle")
	require.NoError(t, db.ExportBranchToFile(branch.Default, path, bundle.Options{}))

	n, err := db.ImportBranchFromFile("restored", path)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	require.NoError(t, db.Checkout("restored"))
	v, ok, err := db.Get("", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, err = db.ImportBranchFromFile("other", filepath.Join(t.TempDir(), "missing.bundle"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestImportRejectsCorruptBundle(t *testing.T) {
	db := newCacheDB(t)

	_, err := db.Put("", "k", "v")
	require.NoError(t, err)
	data, err := db.ExportBranch(branch.Default, bundle.Options{})
	require.NoError(t, err)

	data[0] ^= 0xFF
	_, err = db.ImportBranch("restored", data)
	assert.ErrorIs(t, err, ErrValidation)

	// The failed import leaves no partial branch behind.
	ok, err := db.BranchExists("restored")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImportIntoExistingBranch(t *testing.T) {
	db := newCacheDB(t)

	data, err := db.ExportBranch(branch.Default, bundle.Options{})
	require.NoError(t, err)

	_, err = db.ImportBranch(branch.Default, data)
	assert.ErrorIs(t, err, ErrState)
}
