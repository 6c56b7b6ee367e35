package branch

import (
	"fmt"
	"strings"

	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// Strategy selects the merge conflict policy.
type Strategy string

const (
	// StrategyLastWriterWins applies the source value on every divergent
	// key, recording a conflict entry but still succeeding.
	StrategyLastWriterWins Strategy = "last_writer_wins"
	// StrategyStrict fails with a conflict report when any key was
	// independently modified on both sides since the common ancestor.
	StrategyStrict Strategy = "strict"
)

// ParseStrategy validates a wire-level strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyLastWriterWins, StrategyStrict:
		return st, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}

// Conflict identifies a key that diverged on both sides since the fork.
type Conflict struct {
	Space     string `json:"space"`
	Primitive string `json:"primitive"`
	Key       string `json:"key"`
}

// ConflictError is returned by strict merges that found divergent keys.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	keys := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		keys = append(keys, c.Space+"/"+c.Primitive+"/"+c.Key)
	}
	return fmt.Sprintf("merge aborted: %d conflicting keys (%s)", len(e.Conflicts), strings.Join(keys, ", "))
}

// MergeResult reports what a merge applied.
type MergeResult struct {
	KeysApplied  int        `json:"keysApplied"`
	SpacesMerged int        `json:"spacesMerged"`
	Conflicts    []Conflict `json:"conflicts"`
}

// Merge applies the source branch's current keys into the target branch.
//
// Conflict detection uses the common-ancestor-version rule: a key conflicts
// only when both sides wrote it after the fork point, so independently
// converging values do not produce spurious conflicts (equal values never
// conflict). Strict merges scan everything first and apply nothing on
// conflict; last-writer-wins applies the source value and records the
// conflict.
func (m *Manager) Merge(source, target string, strategy Strategy) (MergeResult, error) {
	src, err := m.Get(source)
	if err != nil {
		return MergeResult{}, err
	}
	tgt, err := m.Get(target)
	if err != nil {
		return MergeResult{}, err
	}
	if source == target {
		return MergeResult{}, fmt.Errorf("cannot merge %q into itself", source)
	}

	unlock := lockBranches(src, tgt)
	defer unlock()

	base := ancestorBase(src, tgt)

	var plan []writePlan
	var conflicts []Conflict

	srcSpaces := m.arena.Spaces(source)
	for _, srcSpace := range srcSpaces {
		tgtSpace := m.arena.GetOrCreate(target, srcSpace.Name, tgt.clk)
		mergeValueStore(&plan, &conflicts, srcSpace.Name, "kv", srcSpace.KV, tgtSpace.KV, base)
		mergeValueStore(&plan, &conflicts, srcSpace.Name, "state", srcSpace.State, tgtSpace.State, base)
		mergeValueStore(&plan, &conflicts, srcSpace.Name, "json", srcSpace.JSON, tgtSpace.JSON, base)
		mergeEvents(&plan, srcSpace, tgtSpace)
		mergeVectors(&plan, &conflicts, srcSpace.Name, srcSpace.Vector, tgtSpace.Vector, base)
	}

	if strategy == StrategyStrict && len(conflicts) > 0 {
		return MergeResult{}, &ConflictError{Conflicts: conflicts}
	}

	applied := 0
	for _, w := range plan {
		applied += w.apply()
	}
	m.touch(tgt)
	return MergeResult{
		KeysApplied:  applied,
		SpacesMerged: len(srcSpaces),
		Conflicts:    conflicts,
	}, nil
}

// ancestorBase returns the common-ancestor version watermark for a branch
// pair. Unrelated branches get 0, which treats every write as post-fork.
func ancestorBase(src, tgt *Branch) uint64 {
	if src.info.ParentID == tgt.info.ID {
		return src.forkBase
	}
	if tgt.info.ParentID == src.info.ID {
		return tgt.forkBase
	}
	return 0
}

type writePlan struct{ apply func() int }

func mergeValueStore(plan *[]writePlan, conflicts *[]Conflict, spaceName, primitive string, src, tgt *store.Store[value.Value], base uint64) {
	src.Range(func(key string, recs []store.Record[value.Value]) bool {
		if len(recs) == 0 {
			return true
		}
		srcRec := recs[len(recs)-1]
		if srcRec.Tombstone {
			return true
		}
		tgtRec, tgtExists := tgt.Latest(key)
		if tgtExists && !tgtRec.Tombstone && value.Equal(srcRec.Value, tgtRec.Value) {
			return true
		}
		srcModified := srcRec.Version > base
		tgtModified := tgtExists && tgtRec.Version > base
		if srcModified && tgtModified {
			*conflicts = append(*conflicts, Conflict{Space: spaceName, Primitive: primitive, Key: key})
		} else if !srcModified {
			// The source never touched it after the fork; nothing to carry.
			return true
		}
		val := srcRec.Value
		*plan = append(*plan, writePlan{func() int {
			tgt.Put(key, val)
			return 1
		}})
		return true
	})
}

func mergeEvents(plan *[]writePlan, srcSpace, tgtSpace *space.Space) {
	srcEvents := srcSpace.Events.All()
	tgtCount := tgtSpace.Events.Count()
	if uint64(len(srcEvents)) <= tgtCount {
		return
	}
	missing := srcEvents[tgtCount:]
	events := tgtSpace.Events
	*plan = append(*plan, writePlan{func() int {
		applied := 0
		for _, ev := range missing {
			events.Append(ev.Type, ev.Payload)
			applied++
		}
		return applied
	}})
}

func mergeVectors(plan *[]writePlan, conflicts *[]Conflict, spaceName string, src, tgt *vector.Store, base uint64) {
	for _, info := range src.ListCollections() {
		if _, err := tgt.Stats(info.Name); err != nil {
			name, dim, metric := info.Name, info.Dimension, info.Metric
			*plan = append(*plan, writePlan{func() int {
				_, _ = tgt.CreateCollection(name, dim, metric)
				return 0
			}})
		}
	}
	src.ForEachCurrent(func(col string, rec vector.Record) bool {
		tgtRec, tgtExists, err := tgt.Get(col, rec.Key, 0)
		if err != nil {
			tgtExists = false
		}
		if tgtExists && vectorEqual(tgtRec, rec) {
			return true
		}
		srcModified := rec.Version > base
		tgtModified := tgtExists && tgtRec.Version > base
		if srcModified && tgtModified {
			*conflicts = append(*conflicts, Conflict{Space: spaceName, Primitive: "vector", Key: col + "/" + rec.Key})
		} else if !srcModified {
			return true
		}
		colName, key, emb, meta := col, rec.Key, rec.Embedding, rec.Metadata
		*plan = append(*plan, writePlan{func() int {
			if _, err := tgt.Upsert(colName, key, emb, meta); err != nil {
				return 0
			}
			return 1
		}})
		return true
	})
}
