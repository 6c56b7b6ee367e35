package branch

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stratadb/strata/space"
)

// ForkResult reports what a fork copied.
type ForkResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	KeysCopied  int    `json:"keysCopied"`
}

// Fork creates destination as a child of source and copies the current
// state of every source space into it: latest live records for the
// versioned primitives, the whole log for events. History is not carried
// over; the destination starts with the source's version watermark so
// merges can tell post-fork changes apart.
func (m *Manager) Fork(source, destination string) (ForkResult, error) {
	m.mu.Lock()
	src, err := m.getLocked(source)
	if err != nil {
		m.mu.Unlock()
		return ForkResult{}, err
	}
	if b, ok := m.branches[destination]; ok && b.info.Status == StatusActive {
		m.mu.Unlock()
		return ForkResult{}, fmt.Errorf("%w: %q", ErrExists, destination)
	}
	base := src.clk.Version()
	dst := newBranch(destination, source, base)
	dst.clk.Advance(base)
	m.branches[destination] = dst
	m.mu.Unlock()

	unlock := lockBranches(src, dst)
	defer unlock()

	// Copy spaces in parallel; each space only touches its own stores.
	var g errgroup.Group
	spaces := m.arena.Spaces(source)
	copied := make([]int, len(spaces))
	for i, sp := range spaces {
		g.Go(func() error {
			dstSpace := m.arena.GetOrCreate(destination, sp.Name, dst.clk)
			copied[i] = sp.CopyCurrentInto(dstSpace)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ForkResult{}, err
	}

	total := 0
	for _, n := range copied {
		total += n
	}
	m.touch(dst)
	return ForkResult{Source: source, Destination: destination, KeysCopied: total}, nil
}

// SpacesOf returns the spaces of a branch, creating the default space when
// the branch has none yet.
func (m *Manager) SpacesOf(name string) ([]*space.Space, error) {
	b, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	spaces := m.arena.Spaces(name)
	if len(spaces) == 0 {
		spaces = append(spaces, m.arena.GetOrCreate(name, space.Default, b.clk))
	}
	return spaces, nil
}
