package strata

import (
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/txn"
)

// TxnInfo is a point-in-time description of a transaction.
type TxnInfo = txn.Info

// Begin starts a transaction on this handle. A handle carries at most one
// transaction at a time; writes issued until Commit or Rollback are
// buffered and only become visible to other readers at commit.
func (db *DB) Begin(readOnly bool) (string, error) {
	if err := db.check(); err != nil {
		return "", err
	}
	db.txnMu.Lock()
	defer db.txnMu.Unlock()
	if db.tx != nil && db.tx.Active() {
		return "", errState("a transaction is already active")
	}
	db.tx = txn.New(readOnly)
	db.log.Debug("transaction started", "txn", db.tx.ID(), "readOnly", readOnly)
	return db.tx.ID(), nil
}

// Commit applies the transaction's buffered writes atomically: all of them
// land or none do, and no other writer interleaves. It returns the branch
// clock's version after the last applied write. A read-only transaction
// commits as a no-op at the current version.
func (db *DB) Commit() (uint64, error) {
	if err := db.check(); err != nil {
		return 0, err
	}
	db.txnMu.Lock()
	tx := db.tx
	db.txnMu.Unlock()
	if tx == nil {
		return 0, translateError(txn.ErrNotActive)
	}

	branchName := db.CurrentBranch()
	b, err := db.branches.Get(branchName)
	if err != nil {
		return 0, translateError(err)
	}

	err = tx.Commit(func(ops []txn.Op) error {
		unlock := b.LockOp()
		defer unlock()
		getSpace := func(name string) *space.Space {
			return db.branches.Arena().GetOrCreate(branchName, name, b.Clock())
		}
		return txn.Apply(ops, getSpace)
	})
	err = translateError(err)
	db.metrics.RecordTxn(err == nil)
	if err != nil {
		return 0, err
	}
	db.txnMu.Lock()
	db.tx = nil
	db.txnMu.Unlock()
	db.log.Debug("transaction committed", "txn", tx.ID())
	return b.Clock().Version(), nil
}

// Rollback discards the transaction's buffered writes.
func (db *DB) Rollback() error {
	if err := db.check(); err != nil {
		return err
	}
	db.txnMu.Lock()
	tx := db.tx
	db.txnMu.Unlock()
	if tx == nil {
		return translateError(txn.ErrNotActive)
	}
	err := translateError(tx.Rollback())
	if err == nil {
		db.txnMu.Lock()
		db.tx = nil
		db.txnMu.Unlock()
		db.metrics.RecordTxn(false)
		db.log.Debug("transaction rolled back", "txn", tx.ID())
	}
	return err
}

// TxnInfo describes the active transaction.
func (db *DB) TxnInfo() (TxnInfo, error) {
	if err := db.check(); err != nil {
		return TxnInfo{}, err
	}
	tx := db.activeTxn()
	if tx == nil {
		return TxnInfo{}, translateError(txn.ErrNotActive)
	}
	return tx.Describe(), nil
}

// IsTxnActive reports whether this handle has an open transaction.
func (db *DB) IsTxnActive() bool {
	return db.activeTxn() != nil
}
