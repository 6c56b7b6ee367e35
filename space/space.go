// Package space partitions a branch into named namespaces, each holding one
// instance of every primitive store. The (branch, space) pair is the true
// isolation unit: no key is visible across it.
package space

import (
	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/eventlog"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// Default is the space used when the caller never selects one.
const Default = "default"

// Space holds the five primitive families for one (branch, space) pair.
type Space struct {
	Name   string
	Branch string

	KV     *store.Store[value.Value]
	State  *store.Store[value.Value]
	JSON   *store.Store[value.Value]
	Events *eventlog.Log
	Vector *vector.Store
}

func cloneValue(v value.Value) value.Value { return v.Clone() }

// New creates an empty space whose stores stamp writes with the branch clock.
func New(branch, name string, clk *clock.Clock) *Space {
	return &Space{
		Name:   name,
		Branch: branch,
		KV:     store.New[value.Value](clk, cloneValue),
		State:  store.New[value.Value](clk, cloneValue),
		JSON:   store.New[value.Value](clk, cloneValue),
		Events: eventlog.New(clk),
		Vector: vector.NewStore(clk),
	}
}

// Empty reports whether the space holds no live data at all.
func (s *Space) Empty() bool {
	return s.KV.Len() == 0 && s.State.Len() == 0 && s.JSON.Len() == 0 &&
		s.Events.Count() == 0 && s.Vector.Len() == 0
}

// TotalKeys counts live keys across all primitives, events included.
func (s *Space) TotalKeys() int {
	return s.KV.Len() + s.State.Len() + s.JSON.Len() + int(s.Events.Count()) + s.Vector.Len()
}

// TimeRange folds the primitive stores' timestamp ranges into one.
func (s *Space) TimeRange() (oldest, latest uint64) {
	fold := func(o, l uint64) {
		if o != 0 && (oldest == 0 || o < oldest) {
			oldest = o
		}
		if l > latest {
			latest = l
		}
	}
	fold(s.KV.TimeRange())
	fold(s.State.TimeRange())
	fold(s.JSON.TimeRange())
	fold(s.Events.TimeRange())
	fold(s.Vector.TimeRange())
	return oldest, latest
}

// Prune applies the retention policy to every versioned store in the space
// and returns the number of records dropped. The event log is immutable and
// never pruned.
func (s *Space) Prune(policy store.RetentionPolicy, now uint64) int {
	dropped := s.KV.Prune(policy, now)
	dropped += s.State.Prune(policy, now)
	dropped += s.JSON.Prune(policy, now)
	dropped += s.Vector.Prune(policy, now)
	return dropped
}

// CopyCurrentInto copies the space's current state into dst and returns the
// number of keys copied: latest live records for KV/state/JSON/vector, the
// whole log for events (every event is current state).
func (s *Space) CopyCurrentInto(dst *Space) int {
	copied := s.KV.CopyCurrentInto(dst.KV)
	copied += s.State.CopyCurrentInto(dst.State)
	copied += s.JSON.CopyCurrentInto(dst.JSON)
	copied += s.Events.CopyInto(dst.Events)
	copied += s.Vector.CopyCurrentInto(dst.Vector)
	return copied
}
