package strata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stratadb/strata/blobstore"
	"github.com/stratadb/strata/branch"
	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/persist"
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/txn"
)

// Version is the engine version reported by Info.
const Version = "0.1.0"

// Stamp is the (version, timestamp) pair every write returns.
type Stamp = clock.Stamp

// DB is one embedded database handle. All methods are safe for concurrent
// use; primitive operations act on the handle's current branch and current
// space unless a space name is given.
type DB struct {
	opts    options
	log     *Logger
	metrics MetricsCollector

	arena    *space.Arena
	branches *branch.Manager
	snap     *persist.Manager

	mu       sync.RWMutex
	current  string
	curSpace string
	closed   bool

	txnMu sync.Mutex
	tx    *txn.Transaction

	startedAt time.Time

	stopCompact context.CancelFunc
	wg          sync.WaitGroup
}

// Open creates or reopens a database persisted under path. An existing
// snapshot is loaded in full, histories included. WithBlobStore redirects
// persistence to object storage, in which case path may be empty.
func Open(path string, optFns ...Option) (*DB, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	blobs := o.blobs
	if blobs == nil {
		if path == "" {
			return nil, validation("open requires a path or a blob store")
		}
		local, err := blobstore.NewLocalStore(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		blobs = local
	}

	db := newDB(o, blobs)
	restored, err := db.snap.Load(context.Background(), db.branches)
	if err != nil {
		return nil, translateError(err)
	}
	if restored {
		db.log.Info("snapshot restored", "branches", db.branches.Count())
	}
	db.start()
	return db, nil
}

// Cache creates a purely in-memory database. Flush still works — it writes
// to an in-memory blob — but nothing survives the process.
func Cache(optFns ...Option) *DB {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	blobs := o.blobs
	if blobs == nil {
		blobs = blobstore.NewMemoryStore()
	}
	db := newDB(o, blobs)
	db.start()
	return db
}

func newDB(o options, blobs blobstore.Store) *DB {
	arena := space.NewArena()
	return &DB{
		opts:      o,
		log:       o.logger,
		metrics:   o.metrics,
		arena:     arena,
		branches:  branch.NewManager(arena),
		snap:      persist.NewManager(blobs, o.codec),
		current:   branch.Default,
		curSpace:  space.Default,
		startedAt: time.Now(),
	}
}

func (db *DB) start() {
	if db.opts.compactInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	db.stopCompact = cancel
	limiter := rate.NewLimiter(db.opts.compactRate, 1)
	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		ticker := time.NewTicker(db.opts.compactInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruned, err := db.compact(ctx, limiter)
				if err != nil {
					return
				}
				if pruned > 0 {
					db.log.Debug("background compaction", "recordsPruned", pruned)
				}
			}
		}
	}()
}

// check returns ErrClosed after Close.
func (db *DB) check() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrClosed
	}
	return nil
}

// currentBranch resolves the handle's checked-out branch.
func (db *DB) currentBranch() (*branch.Branch, error) {
	db.mu.RLock()
	name := db.current
	db.mu.RUnlock()
	b, err := db.branches.Get(name)
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

// spaceFor resolves a space on the current branch, creating it lazily. An
// empty name means the handle's current space.
func (db *DB) spaceFor(name string) (*space.Space, error) {
	db.mu.RLock()
	branchName := db.current
	if name == "" {
		name = db.curSpace
	}
	db.mu.RUnlock()
	b, err := db.branches.Get(branchName)
	if err != nil {
		return nil, translateError(err)
	}
	return db.arena.GetOrCreate(branchName, name, b.Clock()), nil
}

// Ping reports whether the handle is usable.
func (db *DB) Ping() bool {
	return db.check() == nil
}

// EngineInfo is the descriptor returned by Info.
type EngineInfo struct {
	Version       string `json:"version"`
	UptimeSecs    uint64 `json:"uptimeSecs"`
	BranchCount   int    `json:"branchCount"`
	SpaceCount    int    `json:"spaceCount"`
	TotalKeys     int    `json:"totalKeys"`
	CurrentBranch string `json:"currentBranch"`
	CurrentSpace  string `json:"currentSpace"`
}

// Info describes the engine and the current branch.
func (db *DB) Info() (EngineInfo, error) {
	if err := db.check(); err != nil {
		return EngineInfo{}, err
	}
	db.mu.RLock()
	current, curSpace := db.current, db.curSpace
	db.mu.RUnlock()

	spaces := db.arena.Spaces(current)
	total := 0
	for _, sp := range spaces {
		total += sp.TotalKeys()
	}
	return EngineInfo{
		Version:       Version,
		UptimeSecs:    uint64(time.Since(db.startedAt).Seconds()),
		BranchCount:   db.branches.Count(),
		SpaceCount:    len(spaces),
		TotalKeys:     total,
		CurrentBranch: current,
		CurrentSpace:  curSpace,
	}, nil
}

// TimeRange returns the oldest and latest record timestamps on the current
// branch, 0,0 when it holds no data.
func (db *DB) TimeRange() (oldest, latest uint64, err error) {
	if err := db.check(); err != nil {
		return 0, 0, err
	}
	db.mu.RLock()
	current := db.current
	db.mu.RUnlock()
	for _, sp := range db.arena.Spaces(current) {
		o, l := sp.TimeRange()
		if o != 0 && (oldest == 0 || o < oldest) {
			oldest = o
		}
		if l > latest {
			latest = l
		}
	}
	return oldest, latest, nil
}

// Flush captures the whole engine — every branch, full histories — into one
// atomic snapshot blob. Branch operations are quiesced for the capture.
func (db *DB) Flush(ctx context.Context) error {
	if err := db.check(); err != nil {
		return err
	}
	start := time.Now()
	err := db.flushLocked(ctx)
	db.metrics.RecordFlush(time.Since(start), err)
	if err != nil {
		db.log.Error("flush failed", "error", err)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	db.log.Debug("flush complete", "elapsed", time.Since(start))
	return nil
}

func (db *DB) flushLocked(ctx context.Context) error {
	// Branches are sorted by id, so the lock order is deterministic.
	all := db.branches.All()
	unlocks := make([]func(), 0, len(all))
	for _, b := range all {
		unlocks = append(unlocks, b.LockOp())
	}
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()
	return db.snap.Save(ctx, db.branches)
}

// Compact prunes history beyond the retention policy across all branches
// and spaces, returning the number of records removed. Without a configured
// retention policy it is a no-op.
func (db *DB) Compact(ctx context.Context) (int, error) {
	if err := db.check(); err != nil {
		return 0, err
	}
	return db.compact(ctx, nil)
}

func (db *DB) compact(ctx context.Context, limiter *rate.Limiter) (int, error) {
	if !db.opts.retention.Enabled() {
		return 0, nil
	}
	now := uint64(time.Now().UnixMicro())
	pruned := 0
	for _, name := range db.branches.List() {
		for _, sp := range db.arena.Spaces(name) {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return pruned, err
				}
			}
			pruned += sp.Prune(db.opts.retention, now)
		}
	}
	return pruned, nil
}

// Close flushes a final snapshot, stops background work, and invalidates the
// handle. An active transaction is rolled back.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	db.closed = true
	db.mu.Unlock()

	if db.stopCompact != nil {
		db.stopCompact()
	}
	db.wg.Wait()

	db.txnMu.Lock()
	if db.tx != nil && db.tx.Active() {
		_ = db.tx.Rollback()
		db.metrics.RecordTxn(false)
	}
	db.tx = nil
	db.txnMu.Unlock()

	if err := db.flushLocked(context.Background()); err != nil {
		db.log.Error("final flush failed", "error", err)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// activeTxn returns the handle's transaction when one is active.
func (db *DB) activeTxn() *txn.Transaction {
	db.txnMu.Lock()
	defer db.txnMu.Unlock()
	if db.tx != nil && db.tx.Active() {
		return db.tx
	}
	return nil
}
