package space

import (
	"sort"
	"sync"

	"github.com/stratadb/strata/clock"
)

type arenaKey struct {
	branch string
	name   string
}

// Arena owns every space in the database, keyed by (branch, space name).
// Forking copies over the arena rather than sharing structures, so branches
// never alias each other's data.
type Arena struct {
	mu     sync.RWMutex
	spaces map[arenaKey]*Space
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{spaces: make(map[arenaKey]*Space)}
}

// Get returns the space if it exists.
func (a *Arena) Get(branch, name string) (*Space, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sp, ok := a.spaces[arenaKey{branch, name}]
	return sp, ok
}

// GetOrCreate returns the space, creating it on first use. Spaces are
// auto-created on first write.
func (a *Arena) GetOrCreate(branch, name string, clk *clock.Clock) *Space {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := arenaKey{branch, name}
	if sp, ok := a.spaces[k]; ok {
		return sp
	}
	sp := New(branch, name, clk)
	a.spaces[k] = sp
	return sp
}

// List returns the space names of a branch in sorted order.
func (a *Arena) List(branch string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var names []string
	for k := range a.spaces {
		if k.branch == branch {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

// Spaces returns the spaces of a branch sorted by name.
func (a *Arena) Spaces(branch string) []*Space {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*Space
	for k, sp := range a.spaces {
		if k.branch == branch {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes one space.
func (a *Arena) Delete(branch, name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := arenaKey{branch, name}
	if _, ok := a.spaces[k]; !ok {
		return false
	}
	delete(a.spaces, k)
	return true
}

// DeleteBranch removes every space of a branch and returns how many were
// dropped.
func (a *Arena) DeleteBranch(branch string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for k := range a.spaces {
		if k.branch == branch {
			delete(a.spaces, k)
			n++
		}
	}
	return n
}
