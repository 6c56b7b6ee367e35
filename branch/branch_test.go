package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/value"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(space.NewArena())
}

// mainSpace resolves the default space of the default branch, creating it.
func mainSpace(t *testing.T, m *Manager) *space.Space {
	t.Helper()
	spaces, err := m.SpacesOf(Default)
	require.NoError(t, err)
	return spaces[0]
}

func TestManagerStartsWithDefault(t *testing.T) {
	m := newTestManager(t)

	assert.True(t, m.Exists(Default))
	assert.Equal(t, []string{Default}, m.List())
	assert.Equal(t, 1, m.Count())

	info, ok := m.Describe(Default)
	require.True(t, ok)
	assert.Equal(t, Default, info.ID)
	assert.Empty(t, info.ParentID)
	assert.Equal(t, StatusActive, info.Status)
}

func TestCreate(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Create("feature"))
	assert.True(t, m.Exists("feature"))

	err := m.Create("feature")
	assert.ErrorIs(t, err, ErrExists)

	info, ok := m.Describe("feature")
	require.True(t, ok)
	assert.Empty(t, info.ParentID)
}

func TestGetUnknown(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("feature"))

	sp := m.Arena().GetOrCreate("feature", space.Default, mustGet(t, m, "feature").Clock())
	sp.KV.Put("k", value.Int(1))

	// The current branch is protected.
	err := m.Delete("feature", "feature")
	assert.ErrorIs(t, err, ErrCurrent)

	require.NoError(t, m.Delete("feature", Default))
	assert.False(t, m.Exists("feature"))
	assert.Empty(t, m.Arena().List("feature"))

	err = m.Delete("feature", Default)
	assert.ErrorIs(t, err, ErrNotFound)
}

func mustGet(t *testing.T, m *Manager, name string) *Branch {
	t.Helper()
	b, err := m.Get(name)
	require.NoError(t, err)
	return b
}

func TestForkCopiesCurrentState(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)

	sp.KV.Put("a", value.Int(1))
	sp.KV.Put("a", value.Int(2)) // history should not carry over
	sp.KV.Put("gone", value.Int(3))
	sp.KV.Delete("gone")
	sp.Events.Append("created", value.String("x"))
	sp.State.Put("cell", value.Bool(true))

	res, err := m.Fork(Default, "feature")
	require.NoError(t, err)
	assert.Equal(t, Default, res.Source)
	// a + cell + the event.
	assert.Equal(t, 3, res.KeysCopied)

	forked, ok := m.Arena().Get("feature", space.Default)
	require.True(t, ok)

	v, found := forked.KV.Get("a", 0)
	require.True(t, found)
	assert.True(t, value.Equal(value.Int(2), v))

	_, found = forked.KV.Get("gone", 0)
	assert.False(t, found)

	recs, _ := forked.KV.History("a")
	assert.Len(t, recs, 1)

	assert.Equal(t, uint64(1), forked.Events.Count())

	// Post-fork writes are isolated in both directions.
	sp.KV.Put("after", value.Int(9))
	_, found = forked.KV.Get("after", 0)
	assert.False(t, found)

	forked.KV.Put("only-here", value.Int(1))
	_, found = sp.KV.Get("only-here", 0)
	assert.False(t, found)
}

func TestForkValidation(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Fork("missing", "feature")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Create("taken"))
	_, err = m.Fork(Default, "taken")
	assert.ErrorIs(t, err, ErrExists)
}

func TestForkSetsParentAndBase(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("a", value.Int(1))

	base := mustGet(t, m, Default).Clock().Version()
	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)

	b := mustGet(t, m, "feature")
	assert.Equal(t, Default, b.Info().ParentID)
	assert.Equal(t, base, b.ForkBase())
	assert.GreaterOrEqual(t, b.Clock().Version(), base)
}

func TestDiff(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("same", value.Int(1))
	sp.KV.Put("changed", value.Int(1))
	sp.KV.Put("removed", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)
	forked, _ := m.Arena().Get("feature", space.Default)

	forked.KV.Put("changed", value.Int(2))
	forked.KV.Delete("removed")
	forked.KV.Put("added", value.Int(1))

	res, err := m.Diff(Default, "feature")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.TotalAdded)
	assert.Equal(t, 1, res.Summary.TotalRemoved)
	assert.Equal(t, 1, res.Summary.TotalModified)

	byKey := map[string]Change{}
	for _, e := range res.Entries {
		byKey[e.Key] = e.Change
	}
	assert.Equal(t, ChangeAdded, byKey["added"])
	assert.Equal(t, ChangeRemoved, byKey["removed"])
	assert.Equal(t, ChangeModified, byKey["changed"])
}

func TestDiffIdenticalBranches(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("a", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)

	res, err := m.Diff(Default, "feature")
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestMergeFastForward(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("base", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)
	forked, _ := m.Arena().Get("feature", space.Default)
	forked.KV.Put("new", value.Int(2))
	forked.Events.Append("e", value.Null())

	res, err := m.Merge("feature", Default, StrategyStrict)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 2, res.KeysApplied) // "new" plus the event
	assert.Equal(t, 1, res.SpacesMerged)

	v, ok := sp.KV.Get("new", 0)
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(2), v))
	assert.Equal(t, uint64(1), sp.Events.Count())
}

func TestMergeStrictConflict(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("k", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)
	forked, _ := m.Arena().Get("feature", space.Default)

	// Both sides write the key after the fork, with different values.
	sp.KV.Put("k", value.Int(10))
	forked.KV.Put("k", value.Int(20))

	_, err = m.Merge("feature", Default, StrategyStrict)
	var confErr *ConflictError
	require.ErrorAs(t, err, &confErr)
	require.Len(t, confErr.Conflicts, 1)
	assert.Equal(t, "k", confErr.Conflicts[0].Key)

	// Strict applied nothing.
	v, _ := sp.KV.Get("k", 0)
	assert.True(t, value.Equal(value.Int(10), v))
}

func TestMergeLastWriterWins(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("k", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)
	forked, _ := m.Arena().Get("feature", space.Default)

	sp.KV.Put("k", value.Int(10))
	forked.KV.Put("k", value.Int(20))

	res, err := m.Merge("feature", Default, StrategyLastWriterWins)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, 1, res.KeysApplied)

	v, _ := sp.KV.Get("k", 0)
	assert.True(t, value.Equal(value.Int(20), v))
}

func TestMergeConvergentValuesDoNotConflict(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("k", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)
	forked, _ := m.Arena().Get("feature", space.Default)

	// Both sides write the same value independently.
	sp.KV.Put("k", value.Int(42))
	forked.KV.Put("k", value.Int(42))

	res, err := m.Merge("feature", Default, StrategyStrict)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Zero(t, res.KeysApplied)
}

func TestMergeTargetOnlyChangeSurvives(t *testing.T) {
	m := newTestManager(t)
	sp := mainSpace(t, m)
	sp.KV.Put("k", value.Int(1))

	_, err := m.Fork(Default, "feature")
	require.NoError(t, err)

	// Only the target moved; the stale source copy must not clobber it.
	sp.KV.Put("k", value.Int(99))

	res, err := m.Merge("feature", Default, StrategyStrict)
	require.NoError(t, err)
	assert.Zero(t, res.KeysApplied)

	v, _ := sp.KV.Get("k", 0)
	assert.True(t, value.Equal(value.Int(99), v))
}

func TestMergeIntoSelf(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Merge(Default, Default, StrategyStrict)
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"strict", "last_writer_wins"} {
		st, err := ParseStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, Strategy(s), st)
	}
	_, err := ParseStrategy("theirs")
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	m := newTestManager(t)

	info := Info{ID: "restored", ParentID: Default, Status: StatusActive, CreatedAt: 5, UpdatedAt: 6}
	b := m.Restore(info, 3, 40, 5000)

	assert.Equal(t, info, b.Info())
	assert.Equal(t, uint64(3), b.ForkBase())
	assert.Equal(t, uint64(40), b.Clock().Version())

	st := b.Clock().Tick()
	assert.Equal(t, uint64(41), st.Version)
	assert.Greater(t, st.Timestamp, uint64(5000))

	got := mustGet(t, m, "restored")
	assert.Same(t, b, got)
}
