package branch

import (
	"strconv"

	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// Change classifies one key's difference between two branches.
type Change string

const (
	// ChangeAdded means the key exists only in branch B.
	ChangeAdded Change = "added"
	// ChangeRemoved means the key exists only in branch A.
	ChangeRemoved Change = "removed"
	// ChangeModified means the key exists in both with different values.
	ChangeModified Change = "modified"
)

// DiffEntry is one per-key difference.
type DiffEntry struct {
	Space     string `json:"space"`
	Primitive string `json:"primitive"`
	Key       string `json:"key"`
	Change    Change `json:"change"`
}

// DiffSummary aggregates the per-key detail.
type DiffSummary struct {
	TotalAdded    int `json:"totalAdded"`
	TotalRemoved  int `json:"totalRemoved"`
	TotalModified int `json:"totalModified"`
}

// DiffResult is the outcome of comparing two branches.
type DiffResult struct {
	BranchA string      `json:"branchA"`
	BranchB string      `json:"branchB"`
	Summary DiffSummary `json:"summary"`
	Entries []DiffEntry `json:"entries"`
}

// Diff compares the current state of every primitive across every space of
// both branches. Added/removed are relative to A: a key only in B is added,
// only in A is removed.
func (m *Manager) Diff(branchA, branchB string) (DiffResult, error) {
	a, err := m.Get(branchA)
	if err != nil {
		return DiffResult{}, err
	}
	b, err := m.Get(branchB)
	if err != nil {
		return DiffResult{}, err
	}

	unlock := lockBranches(a, b)
	defer unlock()

	res := DiffResult{BranchA: branchA, BranchB: branchB}

	spaceNames := map[string]struct{}{}
	for _, name := range m.arena.List(branchA) {
		spaceNames[name] = struct{}{}
	}
	for _, name := range m.arena.List(branchB) {
		spaceNames[name] = struct{}{}
	}

	for name := range spaceNames {
		spA, okA := m.arena.Get(branchA, name)
		spB, okB := m.arena.Get(branchB, name)
		if !okA {
			spA = space.New(branchA, name, a.clk)
		}
		if !okB {
			spB = space.New(branchB, name, b.clk)
		}
		res.diffValueStore(name, "kv", spA.KV, spB.KV)
		res.diffValueStore(name, "state", spA.State, spB.State)
		res.diffValueStore(name, "json", spA.JSON, spB.JSON)
		res.diffEvents(name, spA, spB)
		res.diffVectors(name, spA.Vector, spB.Vector)
	}
	return res, nil
}

func (r *DiffResult) record(e DiffEntry) {
	switch e.Change {
	case ChangeAdded:
		r.Summary.TotalAdded++
	case ChangeRemoved:
		r.Summary.TotalRemoved++
	case ChangeModified:
		r.Summary.TotalModified++
	}
	r.Entries = append(r.Entries, e)
}

func currentValues(s *store.Store[value.Value]) map[string]value.Value {
	out := make(map[string]value.Value)
	s.Range(func(key string, recs []store.Record[value.Value]) bool {
		if len(recs) == 0 {
			return true
		}
		last := recs[len(recs)-1]
		if !last.Tombstone {
			out[key] = last.Value
		}
		return true
	})
	return out
}

func (r *DiffResult) diffValueStore(spaceName, primitive string, a, b *store.Store[value.Value]) {
	av := currentValues(a)
	bv := currentValues(b)
	for key, valA := range av {
		valB, ok := bv[key]
		switch {
		case !ok:
			r.record(DiffEntry{spaceName, primitive, key, ChangeRemoved})
		case !value.Equal(valA, valB):
			r.record(DiffEntry{spaceName, primitive, key, ChangeModified})
		}
	}
	for key := range bv {
		if _, ok := av[key]; !ok {
			r.record(DiffEntry{spaceName, primitive, key, ChangeAdded})
		}
	}
}

func (r *DiffResult) diffEvents(spaceName string, spA, spB *space.Space) {
	evA := spA.Events.All()
	evB := spB.Events.All()
	common := len(evA)
	if len(evB) < common {
		common = len(evB)
	}
	for i := 0; i < common; i++ {
		if evA[i].Type != evB[i].Type || !value.Equal(evA[i].Payload, evB[i].Payload) {
			r.record(DiffEntry{spaceName, "event", seqKey(evA[i].Sequence), ChangeModified})
		}
	}
	for i := common; i < len(evA); i++ {
		r.record(DiffEntry{spaceName, "event", seqKey(evA[i].Sequence), ChangeRemoved})
	}
	for i := common; i < len(evB); i++ {
		r.record(DiffEntry{spaceName, "event", seqKey(evB[i].Sequence), ChangeAdded})
	}
}

func (r *DiffResult) diffVectors(spaceName string, a, b *vector.Store) {
	av := map[string]vector.Record{}
	a.ForEachCurrent(func(col string, rec vector.Record) bool {
		av[col+"/"+rec.Key] = rec
		return true
	})
	seen := map[string]struct{}{}
	b.ForEachCurrent(func(col string, rec vector.Record) bool {
		key := col + "/" + rec.Key
		seen[key] = struct{}{}
		recA, ok := av[key]
		switch {
		case !ok:
			r.record(DiffEntry{spaceName, "vector", key, ChangeAdded})
		case !vectorEqual(recA, rec):
			r.record(DiffEntry{spaceName, "vector", key, ChangeModified})
		}
		return true
	})
	for key := range av {
		if _, ok := seen[key]; !ok {
			r.record(DiffEntry{spaceName, "vector", key, ChangeRemoved})
		}
	}
}

func vectorEqual(a, b vector.Record) bool {
	if len(a.Embedding) != len(b.Embedding) {
		return false
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			return false
		}
	}
	return value.Equal(a.Metadata, b.Metadata)
}

func seqKey(seq uint64) string {
	return "seq:" + strconv.FormatUint(seq, 10)
}
