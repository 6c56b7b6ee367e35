// Package branch implements the branch graph: creation, forking, diffing,
// merging, and deletion of isolated lines of data evolution.
package branch

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/space"
)

// Default is the root branch every database starts with.
const Default = "main"

// Status is the branch lifecycle state. Deleted is terminal.
type Status string

const (
	// StatusActive marks a live branch.
	StatusActive Status = "active"
	// StatusDeleted marks a branch whose data has been cascaded away.
	StatusDeleted Status = "deleted"
)

var (
	// ErrNotFound is returned when a referenced branch does not exist.
	ErrNotFound = errors.New("branch not found")
	// ErrExists is returned when creating a branch that already exists.
	ErrExists = errors.New("branch already exists")
	// ErrCurrent is returned when deleting the currently selected branch.
	ErrCurrent = errors.New("cannot delete the current branch")
)

// Info is the caller-visible branch descriptor.
type Info struct {
	ID        string `json:"id"`
	ParentID  string `json:"parentId,omitempty"`
	Status    Status `json:"status"`
	CreatedAt uint64 `json:"createdAt"`
	UpdatedAt uint64 `json:"updatedAt"`
}

// VersionedInfo pairs Info with the branch clock's position.
type VersionedInfo struct {
	Info
	Version   uint64 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
}

// Branch is the internal branch state.
type Branch struct {
	info Info
	clk  *clock.Clock

	// forkBase is the parent's version when this branch was forked; merge
	// uses it as the common-ancestor watermark for conflict detection.
	forkBase uint64

	// opMu serializes fork/merge/export/import against this branch. These
	// operations lock their whole branch set up front in name order, so no
	// incremental lock acquisition (and no deadlock) is possible.
	opMu sync.Mutex
}

// Clock returns the branch's version clock.
func (b *Branch) Clock() *clock.Clock { return b.clk }

// ForkBase returns the parent's clock version captured when this branch was
// forked, 0 for a root branch.
func (b *Branch) ForkBase() uint64 { return b.forkBase }

// LockOp serializes this branch against fork, merge, import, and transaction
// commits. It returns the unlock func.
func (b *Branch) LockOp() func() {
	b.opMu.Lock()
	return b.opMu.Unlock
}

// Info returns a copy of the branch descriptor.
func (b *Branch) Info() Info { return b.info }

// Manager owns the branch graph and the space arena.
type Manager struct {
	mu       sync.RWMutex
	branches map[string]*Branch
	arena    *space.Arena
}

// NewManager creates a manager holding only the default branch.
func NewManager(arena *space.Arena) *Manager {
	m := &Manager{
		branches: make(map[string]*Branch),
		arena:    arena,
	}
	m.branches[Default] = newBranch(Default, "", 0)
	return m
}

func newBranch(id, parent string, forkBase uint64) *Branch {
	clk := clock.New(0)
	st := clk.Tick()
	return &Branch{
		info: Info{
			ID:        id,
			ParentID:  parent,
			Status:    StatusActive,
			CreatedAt: st.Timestamp,
			UpdatedAt: st.Timestamp,
		},
		clk:      clk,
		forkBase: forkBase,
	}
}

// Arena returns the space arena shared by all branches.
func (m *Manager) Arena() *space.Arena { return m.arena }

// All returns every branch runtime, deleted ones included, sorted by id.
// Snapshot persistence uses it to capture the full branch graph.
func (m *Manager) All() []*Branch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Branch, 0, len(m.branches))
	for _, b := range m.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].info.ID < out[j].info.ID })
	return out
}

// Restore recreates a branch from snapshot state, bypassing the lifecycle
// checks Create performs. The branch keeps its recorded clock position so
// versions issued after recovery continue where the snapshot left off.
func (m *Manager) Restore(info Info, forkBase, clockVersion, lastTimestamp uint64) *Branch {
	m.mu.Lock()
	defer m.mu.Unlock()
	clk := clock.New(clockVersion)
	clk.ObserveTimestamp(lastTimestamp)
	b := &Branch{info: info, clk: clk, forkBase: forkBase}
	m.branches[info.ID] = b
	return b
}

// Get returns the branch runtime state.
func (m *Manager) Get(name string) (*Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(name)
}

func (m *Manager) getLocked(name string) (*Branch, error) {
	b, ok := m.branches[name]
	if !ok || b.info.Status != StatusActive {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return b, nil
}

// Exists reports whether an active branch with this name exists.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branches[name]
	return ok && b.info.Status == StatusActive
}

// Create adds a new empty branch with no parent.
func (m *Manager) Create(name string) error {
	if name == "" {
		return errors.New("branch name must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.branches[name]; ok && b.info.Status == StatusActive {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	m.branches[name] = newBranch(name, "", 0)
	return nil
}

// List returns the names of all active branches, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.branches))
	for name, b := range m.branches {
		if b.info.Status == StatusActive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Count returns the number of active branches.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.branches {
		if b.info.Status == StatusActive {
			n++
		}
	}
	return n
}

// Describe returns the branch descriptor with its clock position, or false
// when the branch does not exist (deleted branches are reported).
func (m *Manager) Describe(name string) (VersionedInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branches[name]
	if !ok {
		return VersionedInfo{}, false
	}
	return VersionedInfo{
		Info:      b.info,
		Version:   b.clk.Version(),
		Timestamp: b.info.UpdatedAt,
	}, true
}

// Delete transitions a branch to deleted and cascades away its spaces and
// all primitive data. The currently selected branch is protected; the
// transition is terminal and irreversible.
func (m *Manager) Delete(name, current string) error {
	if name == current {
		return fmt.Errorf("%w: %q", ErrCurrent, name)
	}
	m.mu.Lock()
	b, err := m.getLocked(name)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	b.info.Status = StatusDeleted
	b.info.UpdatedAt = b.clk.Tick().Timestamp
	m.mu.Unlock()

	m.arena.DeleteBranch(name)
	return nil
}

// touch bumps the branch's UpdatedAt after a structural mutation.
func (m *Manager) touch(b *Branch) {
	m.mu.Lock()
	b.info.UpdatedAt = b.clk.Now()
	m.mu.Unlock()
}

// lockBranches takes the per-branch operation locks in name order and
// returns the unlock function. Taking the whole set up front is what keeps
// cross-branch operations deadlock-free.
func lockBranches(branches ...*Branch) func() {
	sorted := make([]*Branch, len(branches))
	copy(sorted, branches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].info.ID < sorted[j].info.ID })
	for _, b := range sorted {
		b.opMu.Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			sorted[i].opMu.Unlock()
		}
	}
}
