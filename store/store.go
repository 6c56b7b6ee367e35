package store

import (
	"sync"

	"github.com/huandu/skiplist"

	"github.com/stratadb/strata/clock"
)

// CloneFunc deep-copies a value so callers cannot alias store-owned state.
type CloneFunc[T any] func(T) T

// Store is a versioned map from string keys to histories of T.
//
// All operations are internally serialized with a single RWMutex; histories
// are append-only, so readers that copied a slice header under the read lock
// can keep using it after release.
type Store[T any] struct {
	mu    sync.RWMutex
	clk   *clock.Clock
	keys  *skiplist.SkipList // key -> *entry[T]
	live  int                // keys whose latest record is not a tombstone
	clone CloneFunc[T]

	oldestTs uint64
	latestTs uint64
}

// New creates a store bound to the branch clock. clone may be nil when T is
// a value type that needs no deep copy.
func New[T any](clk *clock.Clock, clone CloneFunc[T]) *Store[T] {
	return &Store[T]{
		clk:   clk,
		keys:  skiplist.New(skiplist.String),
		clone: clone,
	}
}

// Clock returns the branch clock this store stamps writes with.
func (s *Store[T]) Clock() *clock.Clock { return s.clk }

func (s *Store[T]) cloneVal(v T) T {
	if s.clone == nil {
		return v
	}
	return s.clone(v)
}

func (s *Store[T]) entryOf(key string) (*entry[T], bool) {
	v, ok := s.keys.GetValue(key)
	if !ok {
		return nil, false
	}
	return v.(*entry[T]), true
}

// Put appends a new version for key and returns its stamp.
func (s *Store[T]) Put(key string, v T) clock.Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(key, s.cloneVal(v), false)
}

func (s *Store[T]) putLocked(key string, v T, tombstone bool) clock.Stamp {
	st := s.clk.Tick()
	ent, ok := s.entryOf(key)
	if !ok {
		ent = &entry[T]{}
		s.keys.Set(key, ent)
	}
	wasLive := false
	if last, has := ent.latest(); has {
		wasLive = !last.Tombstone
	}
	ent.records = append(ent.records, Record[T]{
		Value:     v,
		Version:   st.Version,
		Timestamp: st.Timestamp,
		Tombstone: tombstone,
	})
	if tombstone && wasLive {
		s.live--
	} else if !tombstone && !wasLive {
		s.live++
	}
	if s.oldestTs == 0 || st.Timestamp < s.oldestTs {
		s.oldestTs = st.Timestamp
	}
	if st.Timestamp > s.latestTs {
		s.latestTs = st.Timestamp
	}
	return st
}

// PutRecord appends a pre-stamped record, advancing the clock past its
// version. Used by fork, merge apply, and bundle import.
func (s *Store[T]) PutRecord(key string, rec Record[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entryOf(key)
	if !ok {
		ent = &entry[T]{}
		s.keys.Set(key, ent)
	}
	wasLive := false
	if last, has := ent.latest(); has {
		wasLive = !last.Tombstone
	}
	ent.records = append(ent.records, rec)
	if rec.Tombstone && wasLive {
		s.live--
	} else if !rec.Tombstone && !wasLive {
		s.live++
	}
	if s.oldestTs == 0 || rec.Timestamp < s.oldestTs {
		s.oldestTs = rec.Timestamp
	}
	if rec.Timestamp > s.latestTs {
		s.latestTs = rec.Timestamp
	}
	s.clk.Advance(rec.Version)
	s.clk.ObserveTimestamp(rec.Timestamp)
}

// Get returns the value visible at asOf (0 for now). A key deleted before
// asOf, or not yet written at asOf, reads as absent.
func (s *Store[T]) Get(key string, asOf uint64) (T, bool) {
	var zero T
	s.mu.RLock()
	ent, ok := s.entryOf(key)
	if !ok {
		s.mu.RUnlock()
		return zero, false
	}
	rec, ok := ent.at(asOf)
	s.mu.RUnlock()
	if !ok || rec.Tombstone {
		return zero, false
	}
	return s.cloneVal(rec.Value), true
}

// GetVersioned returns the record visible at asOf (0 for now).
func (s *Store[T]) GetVersioned(key string, asOf uint64) (Record[T], bool) {
	s.mu.RLock()
	ent, ok := s.entryOf(key)
	if !ok {
		s.mu.RUnlock()
		return Record[T]{}, false
	}
	rec, ok := ent.at(asOf)
	s.mu.RUnlock()
	if !ok || rec.Tombstone {
		return Record[T]{}, false
	}
	rec.Value = s.cloneVal(rec.Value)
	return rec, true
}

// Latest returns the newest record for key, tombstones included. Used by
// CAS, diff, and merge which need to see deletions.
func (s *Store[T]) Latest(key string) (Record[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.entryOf(key)
	if !ok {
		return Record[T]{}, false
	}
	rec, ok := ent.latest()
	if ok {
		rec.Value = s.cloneVal(rec.Value)
	}
	return rec, ok
}

// Delete appends a tombstone for key. Returns false when the key is absent
// or already deleted; history before the tombstone remains readable via asOf.
func (s *Store[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entryOf(key)
	if !ok {
		return false
	}
	last, has := ent.latest()
	if !has || last.Tombstone {
		return false
	}
	var zero T
	s.putLocked(key, zero, true)
	return true
}

// History returns the non-tombstone records for key in increasing version
// order, or false if the key has never been written.
func (s *Store[T]) History(key string) ([]Record[T], bool) {
	s.mu.RLock()
	ent, ok := s.entryOf(key)
	if !ok {
		s.mu.RUnlock()
		return nil, false
	}
	recs := ent.records
	s.mu.RUnlock()

	out := make([]Record[T], 0, len(recs))
	for _, rec := range recs {
		if rec.Tombstone {
			continue
		}
		rec.Value = s.cloneVal(rec.Value)
		out = append(out, rec)
	}
	return out, true
}

// Init writes v only when the key has no live value, otherwise returns the
// current stamp unchanged. The check and write are atomic.
func (s *Store[T]) Init(key string, v T) (clock.Stamp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent, ok := s.entryOf(key); ok {
		if last, has := ent.latest(); has && !last.Tombstone {
			return clock.Stamp{Version: last.Version, Timestamp: last.Timestamp}, false
		}
	}
	return s.putLocked(key, s.cloneVal(v), false), true
}

// Cas atomically replaces the value when the caller's expectation holds.
// A nil expectedVersion means "only succeed when the key has no live value".
// On disagreement it returns false without mutating anything.
func (s *Store[T]) Cas(key string, v T, expectedVersion *uint64) (clock.Stamp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *Record[T]
	if ent, ok := s.entryOf(key); ok {
		if last, has := ent.latest(); has && !last.Tombstone {
			cur = &last
		}
	}
	if expectedVersion == nil {
		if cur != nil {
			return clock.Stamp{}, false
		}
	} else {
		if cur == nil || cur.Version != *expectedVersion {
			return clock.Stamp{}, false
		}
	}
	return s.putLocked(key, s.cloneVal(v), false), true
}

// Len returns the number of live keys.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// TimeRange returns the oldest and latest record timestamps, or (0, 0) for
// an empty store. Pruned records do not shrink the range.
func (s *Store[T]) TimeRange() (oldest, latest uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oldestTs, s.latestTs
}
