package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickMonotonic(t *testing.T) {
	c := New(0)

	prev := c.Tick()
	for i := 0; i < 1000; i++ {
		st := c.Tick()
		require.Equal(t, prev.Version+1, st.Version)
		require.Greater(t, st.Timestamp, prev.Timestamp)
		prev = st
	}
}

func TestTickFrozenTimeStillAdvances(t *testing.T) {
	// A frozen wall clock must not produce duplicate timestamps.
	c := NewWithNow(0, func() uint64 { return 42 })

	first := c.Tick()
	second := c.Tick()
	assert.Equal(t, uint64(42), first.Timestamp)
	assert.Equal(t, uint64(43), second.Timestamp)
}

func TestTickBackwardsTime(t *testing.T) {
	now := uint64(100)
	c := NewWithNow(0, func() uint64 { return now })

	st := c.Tick()
	assert.Equal(t, uint64(100), st.Timestamp)

	now = 50
	st = c.Tick()
	assert.Equal(t, uint64(101), st.Timestamp)
}

func TestAdvance(t *testing.T) {
	c := New(0)
	c.Advance(10)
	assert.Equal(t, uint64(10), c.Version())

	// Advancing backwards is a no-op.
	c.Advance(3)
	assert.Equal(t, uint64(10), c.Version())

	st := c.Tick()
	assert.Equal(t, uint64(11), st.Version)
}

func TestObserveTimestamp(t *testing.T) {
	c := NewWithNow(0, func() uint64 { return 5 })
	c.ObserveTimestamp(1000)

	st := c.Tick()
	assert.Equal(t, uint64(1001), st.Timestamp)
}

func TestNowDoesNotReserve(t *testing.T) {
	c := NewWithNow(0, func() uint64 { return 7 })

	assert.Equal(t, uint64(7), c.Now())
	st := c.Tick()
	assert.Equal(t, uint64(7), st.Timestamp)
}

func TestConcurrentTicks(t *testing.T) {
	c := New(0)

	const goroutines = 8
	const perG = 500

	var wg sync.WaitGroup
	stamps := make([][]Stamp, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			out := make([]Stamp, perG)
			for i := range out {
				out[i] = c.Tick()
			}
			stamps[g] = out
		}(g)
	}
	wg.Wait()

	seenVersions := make(map[uint64]bool)
	seenTimestamps := make(map[uint64]bool)
	for _, batch := range stamps {
		for _, st := range batch {
			require.False(t, seenVersions[st.Version], "duplicate version %d", st.Version)
			require.False(t, seenTimestamps[st.Timestamp], "duplicate timestamp %d", st.Timestamp)
			seenVersions[st.Version] = true
			seenTimestamps[st.Timestamp] = true
		}
	}
	assert.Equal(t, uint64(goroutines*perG), c.Version())
}
