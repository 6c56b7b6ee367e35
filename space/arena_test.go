package space

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/value"
)

func TestGetOrCreate(t *testing.T) {
	a := NewArena()
	clk := clock.New(0)

	sp := a.GetOrCreate("main", "default", clk)
	require.NotNil(t, sp)
	assert.Equal(t, "default", sp.Name)
	assert.Equal(t, "main", sp.Branch)

	again := a.GetOrCreate("main", "default", clk)
	assert.Same(t, sp, again)

	got, ok := a.Get("main", "default")
	require.True(t, ok)
	assert.Same(t, sp, got)

	_, ok = a.Get("main", "other")
	assert.False(t, ok)
}

func TestIsolationByBranchAndName(t *testing.T) {
	a := NewArena()
	clk := clock.New(0)

	a.GetOrCreate("main", "s", clk).KV.Put("k", value.Int(1))
	other := a.GetOrCreate("feature", "s", clk)

	_, ok := other.KV.Get("k", 0)
	assert.False(t, ok)
}

func TestListAndSpaces(t *testing.T) {
	a := NewArena()
	clk := clock.New(0)
	a.GetOrCreate("main", "b", clk)
	a.GetOrCreate("main", "a", clk)
	a.GetOrCreate("feature", "c", clk)

	assert.Equal(t, []string{"a", "b"}, a.List("main"))

	spaces := a.Spaces("main")
	require.Len(t, spaces, 2)
	assert.Equal(t, "a", spaces[0].Name)
	assert.Equal(t, "b", spaces[1].Name)

	assert.Empty(t, a.List("unknown"))
}

func TestDelete(t *testing.T) {
	a := NewArena()
	clk := clock.New(0)
	a.GetOrCreate("main", "s", clk)

	assert.True(t, a.Delete("main", "s"))
	assert.False(t, a.Delete("main", "s"))
	_, ok := a.Get("main", "s")
	assert.False(t, ok)
}

func TestDeleteBranch(t *testing.T) {
	a := NewArena()
	clk := clock.New(0)
	a.GetOrCreate("main", "a", clk)
	a.GetOrCreate("main", "b", clk)
	a.GetOrCreate("feature", "a", clk)

	assert.Equal(t, 2, a.DeleteBranch("main"))
	assert.Empty(t, a.List("main"))
	assert.Equal(t, []string{"a"}, a.List("feature"))
}

func TestSpaceEmptyAndTotals(t *testing.T) {
	clk := clock.New(0)
	sp := New("main", "s", clk)
	assert.True(t, sp.Empty())
	assert.Zero(t, sp.TotalKeys())

	sp.KV.Put("k", value.Int(1))
	sp.Events.Append("e", value.Null())
	assert.False(t, sp.Empty())
	assert.Equal(t, 2, sp.TotalKeys())
}

func TestSpaceTimeRange(t *testing.T) {
	clk := clock.New(0)
	sp := New("main", "s", clk)

	o, l := sp.TimeRange()
	assert.Zero(t, o)
	assert.Zero(t, l)

	first := sp.KV.Put("k", value.Int(1))
	last := sp.Events.Append("e", value.Null())

	o, l = sp.TimeRange()
	assert.Equal(t, first.Timestamp, o)
	assert.Equal(t, last.Timestamp, l)
}

func TestSpaceCopyCurrentInto(t *testing.T) {
	clk := clock.New(0)
	src := New("main", "s", clk)
	src.KV.Put("k", value.Int(1))
	src.State.Put("cell", value.Bool(true))
	src.JSON.Put("doc", value.Object(map[string]value.Value{"a": value.Int(1)}))
	src.Events.Append("e", value.Null())

	dst := New("feature", "s", clock.New(0))
	copied := src.CopyCurrentInto(dst)
	assert.Equal(t, 4, copied)
	assert.Equal(t, 4, dst.TotalKeys())
}
