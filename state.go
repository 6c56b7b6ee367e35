package strata

import (
	"github.com/stratadb/strata/txn"
	"github.com/stratadb/strata/value"
)

// StateInit initializes a state cell if and only if it has no live value.
// The bool reports whether this call created it.
func (db *DB) StateInit(space, key string, v any) (Stamp, bool, error) {
	if err := db.check(); err != nil {
		return Stamp{}, false, err
	}
	val, err := value.FromNative(v)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, false, validation("%v", err)
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, false, err
	}
	st, created := sp.State.Init(key, val)
	db.metrics.RecordWrite(nil)
	return st, created, nil
}

// StateSet unconditionally replaces a state cell. Buffered inside an active
// transaction.
func (db *DB) StateSet(space, key string, v any) (Stamp, error) {
	if err := db.check(); err != nil {
		return Stamp{}, err
	}
	val, err := value.FromNative(v)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, validation("%v", err)
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpStatePut, Space: sp.Name, Key: key, Value: val}))
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	st := sp.State.Put(key, val)
	db.metrics.RecordWrite(nil)
	return st, nil
}

// StateCas replaces a state cell only when its current version matches
// expectedVersion; nil expects the cell to not exist (create-only). The bool
// reports whether the swap happened. CAS always executes immediately, even
// inside a transaction, because its whole point is checking committed state.
func (db *DB) StateCas(space, key string, v any, expectedVersion *uint64) (Stamp, bool, error) {
	if err := db.check(); err != nil {
		return Stamp{}, false, err
	}
	val, err := value.FromNative(v)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, false, validation("%v", err)
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, false, err
	}
	st, swapped := sp.State.Cas(key, val, expectedVersion)
	db.metrics.RecordWrite(nil)
	return st, swapped, nil
}

// StateGet reads a state cell with its version, as of asOf (0 for now).
func (db *DB) StateGet(space, key string, asOf uint64) (VersionedValue, bool, error) {
	if err := db.check(); err != nil {
		return VersionedValue{}, false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return VersionedValue{}, false, err
	}
	if asOf == 0 {
		if tx := db.activeTxn(); tx != nil {
			if pending, buffered := tx.Lookup(sp.Name, "state", key); buffered {
				db.metrics.RecordRead(nil)
				if pending == nil {
					return VersionedValue{}, false, nil
				}
				return VersionedValue{Value: pending.ToNative()}, true, nil
			}
		}
	}
	rec, ok := sp.State.GetVersioned(key, asOf)
	db.metrics.RecordRead(nil)
	if !ok {
		return VersionedValue{}, false, nil
	}
	return versioned(rec), true, nil
}

// StateDelete tombstones a state cell. Buffered inside an active
// transaction.
func (db *DB) StateDelete(space, key string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpStateDelete, Space: sp.Name, Key: key}))
		db.metrics.RecordWrite(err)
		return err == nil, err
	}
	ok := sp.State.Delete(key)
	db.metrics.RecordWrite(nil)
	return ok, nil
}

// StateList pages through live state cell keys with prefix.
func (db *DB) StateList(space, prefix string, limit int, cursor string, asOf uint64) (KeyPage, error) {
	if err := db.check(); err != nil {
		return KeyPage{}, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return KeyPage{}, err
	}
	page := sp.State.Keys(prefix, limit, cursor, asOf)
	db.metrics.RecordRead(nil)
	return page, nil
}
