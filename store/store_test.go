package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/clock"
)

func newTestStore(t *testing.T) *Store[string] {
	t.Helper()
	return New[string](clock.New(0), nil)
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)

	st1 := s.Put("a", "one")
	st2 := s.Put("a", "two")
	require.Greater(t, st2.Version, st1.Version)
	require.Greater(t, st2.Timestamp, st1.Timestamp)

	v, ok := s.Get("a", 0)
	require.True(t, ok)
	assert.Equal(t, "two", v)

	_, ok = s.Get("missing", 0)
	assert.False(t, ok)
}

func TestGetAsOf(t *testing.T) {
	s := newTestStore(t)

	st1 := s.Put("a", "one")
	st2 := s.Put("a", "two")

	// At the first write's timestamp, the second is invisible.
	v, ok := s.Get("a", st1.Timestamp)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	v, ok = s.Get("a", st2.Timestamp)
	require.True(t, ok)
	assert.Equal(t, "two", v)

	// Before the first write, the key does not exist.
	_, ok = s.Get("a", st1.Timestamp-1)
	assert.False(t, ok)
}

func TestDeleteIsTombstone(t *testing.T) {
	s := newTestStore(t)

	st := s.Put("a", "one")
	require.True(t, s.Delete("a"))

	_, ok := s.Get("a", 0)
	assert.False(t, ok)

	// The pre-delete value stays reachable through time travel.
	v, ok := s.Get("a", st.Timestamp)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	// Double delete and deleting an absent key both report false.
	assert.False(t, s.Delete("a"))
	assert.False(t, s.Delete("missing"))

	// Re-creating after a delete works and counts as live again.
	s.Put("a", "reborn")
	v, ok = s.Get("a", 0)
	require.True(t, ok)
	assert.Equal(t, "reborn", v)
	assert.Equal(t, 1, s.Len())
}

func TestHistoryExcludesTombstones(t *testing.T) {
	s := newTestStore(t)

	s.Put("a", "one")
	s.Put("a", "two")
	s.Delete("a")
	s.Put("a", "three")

	recs, ok := s.History("a")
	require.True(t, ok)
	require.Len(t, recs, 3)
	assert.Equal(t, "one", recs[0].Value)
	assert.Equal(t, "three", recs[2].Value)
	for i := 1; i < len(recs); i++ {
		assert.Greater(t, recs[i].Version, recs[i-1].Version)
	}

	_, ok = s.History("missing")
	assert.False(t, ok)
}

func TestInit(t *testing.T) {
	s := newTestStore(t)

	st, created := s.Init("a", "first")
	require.True(t, created)

	st2, created := s.Init("a", "second")
	assert.False(t, created)
	assert.Equal(t, st, st2)

	v, _ := s.Get("a", 0)
	assert.Equal(t, "first", v)

	// A deleted key can be re-initialized.
	s.Delete("a")
	_, created = s.Init("a", "third")
	assert.True(t, created)
}

func TestCas(t *testing.T) {
	s := newTestStore(t)

	// nil expectation: key must not exist.
	st, ok := s.Cas("a", "one", nil)
	require.True(t, ok)

	_, ok = s.Cas("a", "clobber", nil)
	assert.False(t, ok)

	// Version expectation.
	st2, ok := s.Cas("a", "two", &st.Version)
	require.True(t, ok)

	_, ok = s.Cas("a", "stale", &st.Version)
	assert.False(t, ok)

	v, _ := s.Get("a", 0)
	assert.Equal(t, "two", v)

	// A deleted key fails a version expectation but satisfies nil.
	s.Delete("a")
	_, ok = s.Cas("a", "x", &st2.Version)
	assert.False(t, ok)
	_, ok = s.Cas("a", "x", nil)
	assert.True(t, ok)
}

func TestKeysPagination(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 10; i++ {
		s.Put(fmt.Sprintf("user:%02d", i), "v")
	}
	s.Put("other:1", "v")
	s.Delete("user:03")

	var all []string
	cursor := ""
	pages := 0
	for {
		page := s.Keys("user:", 4, cursor, 0)
		all = append(all, page.Keys...)
		pages++
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Equal(t, 3, pages)
	require.Len(t, all, 9) // ten minus the deleted one
	assert.Equal(t, "user:00", all[0])
	assert.NotContains(t, all, "user:03")
	assert.NotContains(t, all, "other:1")
}

func TestKeysAsOf(t *testing.T) {
	s := newTestStore(t)

	st := s.Put("a", "v")
	s.Put("b", "v")

	page := s.Keys("", 0, "", st.Timestamp)
	assert.Equal(t, []string{"a"}, page.Keys)
}

func TestLen(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, 0, s.Len())

	s.Put("a", "v")
	s.Put("a", "v2")
	s.Put("b", "v")
	assert.Equal(t, 2, s.Len())

	s.Delete("a")
	assert.Equal(t, 1, s.Len())
}

func TestCopyCurrentInto(t *testing.T) {
	src := newTestStore(t)
	src.Put("a", "stale")
	stA := src.Put("a", "fresh")
	src.Put("b", "gone")
	src.Delete("b")
	src.Put("c", "v")

	dst := New[string](clock.New(0), nil)
	copied := src.CopyCurrentInto(dst)
	assert.Equal(t, 2, copied)

	// Stamps survive the copy and the destination clock moved past them.
	rec, ok := dst.GetVersioned("a", 0)
	require.True(t, ok)
	assert.Equal(t, stA.Version, rec.Version)
	assert.Equal(t, stA.Timestamp, rec.Timestamp)
	assert.GreaterOrEqual(t, dst.Clock().Version(), stA.Version)

	_, ok = dst.Get("b", 0)
	assert.False(t, ok)

	// Only the latest version is carried, not history.
	recs, ok := dst.History("a")
	require.True(t, ok)
	assert.Len(t, recs, 1)
}

func TestPruneMaxVersions(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		s.Put("a", fmt.Sprintf("v%d", i))
	}

	dropped := s.Prune(RetentionPolicy{MaxVersions: 2}, 0)
	assert.Equal(t, 3, dropped)

	recs, _ := s.History("a")
	require.Len(t, recs, 2)
	assert.Equal(t, "v3", recs[0].Value)
	assert.Equal(t, "v4", recs[1].Value)

	// Current reads are unaffected.
	v, ok := s.Get("a", 0)
	require.True(t, ok)
	assert.Equal(t, "v4", v)
}

func TestPruneMaxAge(t *testing.T) {
	now := uint64(1000)
	clk := clock.NewWithNow(0, func() uint64 { n := now; now += 100; return n })
	s := New[string](clk, nil)

	s.Put("a", "old")    // ts 1000
	s.Put("a", "middle") // ts 1100
	s.Put("a", "new")    // ts 1200

	// Threshold lands at 1150: "middle" is the newest record at or below
	// it and must survive so reads at the threshold still resolve.
	dropped := s.Prune(RetentionPolicy{MaxAgeMicros: 50}, 1200)
	assert.Equal(t, 1, dropped)

	recs, _ := s.History("a")
	require.Len(t, recs, 2)
	assert.Equal(t, "middle", recs[0].Value)
}

func TestPruneConcurrentWithReadsAndWrites(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 32; i++ {
		key := fmt.Sprintf("k%d", i)
		for j := 0; j < 8; j++ {
			s.Put(key, fmt.Sprintf("v%d", j))
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.Prune(RetentionPolicy{MaxVersions: 2}, 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Put(fmt.Sprintf("k%d", i%32), "w")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, ok := s.Get(fmt.Sprintf("k%d", i%32), 0); !ok {
				t.Error("key vanished under prune")
				return
			}
		}
	}()
	wg.Wait()

	// The newest record of every key always survives.
	for i := 0; i < 32; i++ {
		_, ok := s.Get(fmt.Sprintf("k%d", i), 0)
		assert.True(t, ok)
	}
}

func TestPruneDisabled(t *testing.T) {
	s := newTestStore(t)
	s.Put("a", "v")
	assert.Equal(t, 0, s.Prune(RetentionPolicy{}, 0))
}

func TestCloneIsolation(t *testing.T) {
	type doc struct{ vals []int }
	clk := clock.New(0)
	s := New[*doc](clk, func(d *doc) *doc {
		cp := &doc{vals: make([]int, len(d.vals))}
		copy(cp.vals, d.vals)
		return cp
	})

	orig := &doc{vals: []int{1}}
	s.Put("a", orig)
	orig.vals[0] = 99

	got, ok := s.Get("a", 0)
	require.True(t, ok)
	assert.Equal(t, 1, got.vals[0])
}
