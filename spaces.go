package strata

import "github.com/stratadb/strata/space"

// SpaceStats summarizes one space's live data.
type SpaceStats struct {
	Name      string `json:"name"`
	Branch    string `json:"branch"`
	TotalKeys int    `json:"totalKeys"`
}

// CreateSpace materializes an empty space on the current branch. Creating
// a space that already exists is a no-op; spaces also appear implicitly on
// first write.
func (db *DB) CreateSpace(name string) error {
	if err := db.check(); err != nil {
		return err
	}
	if name == "" {
		return validation("space name must not be empty")
	}
	_, err := db.spaceFor(name)
	db.metrics.RecordWrite(err)
	return err
}

// SpaceExists reports whether the space exists on the current branch.
func (db *DB) SpaceExists(name string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	_, ok := db.branches.Arena().Get(db.CurrentBranch(), name)
	return ok, nil
}

// ListSpaces returns the current branch's space names, sorted.
func (db *DB) ListSpaces() ([]string, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	return db.branches.Arena().List(db.CurrentBranch()), nil
}

// DeleteSpace removes an empty space. A space still holding live data is
// refused; use ForceDeleteSpace to drop it regardless.
func (db *DB) DeleteSpace(name string) error {
	return db.deleteSpace(name, false)
}

// ForceDeleteSpace removes a space and everything in it.
func (db *DB) ForceDeleteSpace(name string) error {
	return db.deleteSpace(name, true)
}

func (db *DB) deleteSpace(name string, force bool) error {
	if err := db.check(); err != nil {
		return err
	}
	branchName := db.CurrentBranch()
	sp, ok := db.branches.Arena().Get(branchName, name)
	if !ok {
		return notFound("space", name)
	}
	if !force && !sp.Empty() {
		err := errConstraint("space %q is not empty", name)
		db.metrics.RecordWrite(err)
		return err
	}
	db.branches.Arena().Delete(branchName, name)
	db.mu.Lock()
	if db.curSpace == name {
		db.curSpace = space.Default
	}
	db.mu.Unlock()
	db.metrics.RecordWrite(nil)
	db.log.Info("space deleted", "branch", branchName, "space", name, "forced", force)
	return nil
}

// SetSpace switches the handle's current space. The space is created lazily
// on first write, so pointing at a not-yet-existing space is fine.
func (db *DB) SetSpace(name string) error {
	if err := db.check(); err != nil {
		return err
	}
	if name == "" {
		return validation("space name must not be empty")
	}
	db.mu.Lock()
	db.curSpace = name
	db.mu.Unlock()
	return nil
}

// CurrentSpace returns the handle's current space name.
func (db *DB) CurrentSpace() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.curSpace
}

// SpaceInfo returns live-key counts for one space on the current branch.
func (db *DB) SpaceInfo(name string) (SpaceStats, error) {
	if err := db.check(); err != nil {
		return SpaceStats{}, err
	}
	branchName := db.CurrentBranch()
	sp, ok := db.branches.Arena().Get(branchName, name)
	if !ok {
		return SpaceStats{}, notFound("space", name)
	}
	return SpaceStats{Name: name, Branch: branchName, TotalKeys: sp.TotalKeys()}, nil
}
