package strata

import (
	"fmt"
	"os"

	"github.com/stratadb/strata/branch"
	"github.com/stratadb/strata/bundle"
	"github.com/stratadb/strata/space"
)

// Merge strategies.
const (
	MergeLastWriterWins = branch.StrategyLastWriterWins
	MergeStrict         = branch.StrategyStrict
)

// BranchInfo describes a branch and its clock position.
type BranchInfo = branch.VersionedInfo

// ForkResult reports what a branch fork copied.
type ForkResult = branch.ForkResult

// DiffResult is the outcome of comparing two branches.
type DiffResult = branch.DiffResult

// MergeResult reports what a branch merge applied.
type MergeResult = branch.MergeResult

// BundleInfo summarizes an exported bundle without applying it.
type BundleInfo = bundle.Info

// CreateBranch creates an empty branch.
func (db *DB) CreateBranch(name string) error {
	if err := db.check(); err != nil {
		return err
	}
	if name == "" {
		return validation("branch name must not be empty")
	}
	err := translateError(db.branches.Create(name))
	db.metrics.RecordWrite(err)
	if err == nil {
		db.log.Info("branch created", "branch", name)
	}
	return err
}

// ForkBranch creates destination as a copy of source's current state. The
// fork carries latest values, not history; time-travel reads on the new
// branch only see post-fork writes.
func (db *DB) ForkBranch(source, destination string) (ForkResult, error) {
	if err := db.check(); err != nil {
		return ForkResult{}, err
	}
	if destination == "" {
		return ForkResult{}, validation("branch name must not be empty")
	}
	res, err := db.branches.Fork(source, destination)
	err = translateError(err)
	db.metrics.RecordWrite(err)
	if err == nil {
		db.log.Info("branch forked",
			"source", source, "destination", destination, "keys", res.KeysCopied)
	}
	return res, err
}

// Checkout switches the handle's current branch. Fails while a transaction
// is open so buffered writes cannot silently land on another branch.
func (db *DB) Checkout(name string) error {
	if err := db.check(); err != nil {
		return err
	}
	if db.activeTxn() != nil {
		return errState("cannot switch branches inside a transaction")
	}
	if _, err := db.branches.Get(name); err != nil {
		return translateError(err)
	}
	db.mu.Lock()
	db.current = name
	db.mu.Unlock()
	db.log.Debug("checked out branch", "branch", name)
	return nil
}

// CurrentBranch returns the handle's current branch name.
func (db *DB) CurrentBranch() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.current
}

// ListBranches returns all live branch names, sorted.
func (db *DB) ListBranches() ([]string, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	return db.branches.List(), nil
}

// BranchExists reports whether a live branch with that name exists.
func (db *DB) BranchExists(name string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	return db.branches.Exists(name), nil
}

// GetBranch returns the branch descriptor with its clock position.
func (db *DB) GetBranch(name string) (BranchInfo, error) {
	if err := db.check(); err != nil {
		return BranchInfo{}, err
	}
	info, ok := db.branches.Describe(name)
	if !ok {
		return BranchInfo{}, notFound("branch", name)
	}
	return info, nil
}

// DiffBranches compares the current state of two branches across every
// space and primitive.
func (db *DB) DiffBranches(branchA, branchB string) (DiffResult, error) {
	if err := db.check(); err != nil {
		return DiffResult{}, err
	}
	res, err := db.branches.Diff(branchA, branchB)
	err = translateError(err)
	db.metrics.RecordRead(err)
	return res, err
}

// MergeBranches applies source's current keys into target using the given
// strategy. Strict merges apply nothing when a conflict exists.
func (db *DB) MergeBranches(source, target string, strategy branch.Strategy) (MergeResult, error) {
	if err := db.check(); err != nil {
		return MergeResult{}, err
	}
	if _, err := branch.ParseStrategy(string(strategy)); err != nil {
		return MergeResult{}, validation("%v", err)
	}
	res, err := db.branches.Merge(source, target, strategy)
	err = translateError(err)
	db.metrics.RecordWrite(err)
	if err == nil {
		db.log.Info("branches merged",
			"source", source, "target", target,
			"keys", res.KeysApplied, "conflicts", len(res.Conflicts))
	}
	return res, err
}

// DeleteBranch removes a branch and all its spaces. The current branch
// cannot be deleted.
func (db *DB) DeleteBranch(name string) error {
	if err := db.check(); err != nil {
		return err
	}
	db.mu.RLock()
	current := db.current
	db.mu.RUnlock()
	err := translateError(db.branches.Delete(name, current))
	db.metrics.RecordWrite(err)
	if err == nil {
		db.log.Info("branch deleted", "branch", name)
	}
	return err
}

// ExportBranch serializes a branch's full contents, per-key history
// included, into a portable bundle.
func (db *DB) ExportBranch(name string, opts bundle.Options) ([]byte, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	b, err := db.branches.Get(name)
	if err != nil {
		return nil, translateError(err)
	}
	unlock := b.LockOp()
	spaces, err := db.branches.SpacesOf(name)
	if err != nil {
		unlock()
		return nil, translateError(err)
	}
	entries := bundle.Collect(spaces)
	unlock()

	data, err := bundle.Encode(name, entries, opts)
	err = translateError(err)
	db.metrics.RecordRead(err)
	if err == nil {
		db.log.Info("branch exported",
			"branch", name, "entries", len(entries), "bytes", len(data))
	}
	return data, err
}

// ImportBranch decodes a bundle and materializes it as a new branch. The
// destination must not exist; a failed import leaves no partial branch
// behind.
func (db *DB) ImportBranch(destination string, data []byte) (int, error) {
	if err := db.check(); err != nil {
		return 0, err
	}
	if destination == "" {
		return 0, validation("branch name must not be empty")
	}
	bd, err := bundle.Decode(data)
	if err != nil {
		err = translateError(err)
		db.metrics.RecordWrite(err)
		return 0, err
	}
	if err := db.branches.Create(destination); err != nil {
		err = translateError(err)
		db.metrics.RecordWrite(err)
		return 0, err
	}
	b, err := db.branches.Get(destination)
	if err != nil {
		return 0, translateError(err)
	}
	getSpace := func(name string) *space.Space {
		return db.branches.Arena().GetOrCreate(destination, name, b.Clock())
	}
	applied, err := bundle.Apply(bd, getSpace)
	if err != nil {
		_ = db.branches.Delete(destination, db.CurrentBranch())
		err = translateError(err)
		db.metrics.RecordWrite(err)
		return 0, err
	}
	db.metrics.RecordWrite(nil)
	db.log.Info("branch imported",
		"branch", destination, "source", bd.Branch, "entries", applied)
	return applied, nil
}

// ExportBranchToFile writes a branch's bundle to a file.
func (db *DB) ExportBranchToFile(name, path string, opts bundle.Options) error {
	data, err := db.ExportBranch(name, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// ImportBranchFromFile reads a bundle from a file and materializes it as a
// new branch.
func (db *DB) ImportBranchFromFile(destination, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return db.ImportBranch(destination, data)
}

// ValidateBundle checks a bundle's framing and checksums without applying
// it and returns its summary.
func (db *DB) ValidateBundle(data []byte) (BundleInfo, error) {
	if err := db.check(); err != nil {
		return BundleInfo{}, err
	}
	info, err := bundle.Validate(data)
	return info, translateError(err)
}
