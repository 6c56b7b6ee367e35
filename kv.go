package strata

import (
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/txn"
	"github.com/stratadb/strata/value"
)

// KeyPage is one page of a paginated key listing.
type KeyPage = store.KeyPage

// VersionedValue is a record returned by versioned reads and history.
type VersionedValue struct {
	Value     any    `json:"value"`
	Version   uint64 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
}

// Put writes a key in the KV store of the given space ("" for the current
// space) on the current branch. Inside an active transaction the write is
// buffered until commit; the returned stamp is zero in that case.
func (db *DB) Put(space, key string, v any) (Stamp, error) {
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
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpKVPut, Space: sp.Name, Key: key, Value: val}))
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	st := sp.KV.Put(key, val)
	db.metrics.RecordWrite(nil)
	return st, nil
}

// Get reads the current value of a KV key. Inside a transaction, pending
// writes of this handle's transaction are visible.
func (db *DB) Get(space, key string) (any, bool, error) {
	return db.GetAsOf(space, key, 0)
}

// GetAsOf reads a KV key as it was at asOf (0 for now).
func (db *DB) GetAsOf(space, key string, asOf uint64) (any, bool, error) {
	if err := db.check(); err != nil {
		return nil, false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return nil, false, err
	}
	if asOf == 0 {
		if tx := db.activeTxn(); tx != nil {
			if pending, buffered := tx.Lookup(sp.Name, "kv", key); buffered {
				db.metrics.RecordRead(nil)
				if pending == nil {
					return nil, false, nil
				}
				return pending.ToNative(), true, nil
			}
		}
	}
	v, ok := sp.KV.Get(key, asOf)
	db.metrics.RecordRead(nil)
	if !ok {
		return nil, false, nil
	}
	return v.ToNative(), true, nil
}

// GetVersioned reads a KV key with its version and timestamp.
func (db *DB) GetVersioned(space, key string, asOf uint64) (VersionedValue, bool, error) {
	if err := db.check(); err != nil {
		return VersionedValue{}, false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return VersionedValue{}, false, err
	}
	rec, ok := sp.KV.GetVersioned(key, asOf)
	db.metrics.RecordRead(nil)
	if !ok {
		return VersionedValue{}, false, nil
	}
	return versioned(rec), true, nil
}

// Delete tombstones a KV key. It reports whether a live value existed.
// Inside a transaction the delete is buffered and the report is true.
func (db *DB) Delete(space, key string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpKVDelete, Space: sp.Name, Key: key}))
		db.metrics.RecordWrite(err)
		return err == nil, err
	}
	ok := sp.KV.Delete(key)
	db.metrics.RecordWrite(nil)
	return ok, nil
}

// Keys lists live KV keys with prefix in lexicographic order. cursor resumes
// a prior page; asOf scopes liveness to a point in time.
func (db *DB) Keys(space, prefix string, limit int, cursor string, asOf uint64) (KeyPage, error) {
	if err := db.check(); err != nil {
		return KeyPage{}, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return KeyPage{}, err
	}
	page := sp.KV.Keys(prefix, limit, cursor, asOf)
	db.metrics.RecordRead(nil)
	return page, nil
}

// History returns a KV key's surviving non-tombstone records in version
// order, oldest first.
func (db *DB) History(space, key string) ([]VersionedValue, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return nil, err
	}
	recs, ok := sp.KV.History(key)
	db.metrics.RecordRead(nil)
	if !ok {
		return nil, nil
	}
	out := make([]VersionedValue, len(recs))
	for i, rec := range recs {
		out[i] = versioned(rec)
	}
	return out, nil
}

func versioned(rec store.Record[value.Value]) VersionedValue {
	return VersionedValue{
		Value:     rec.Value.ToNative(),
		Version:   rec.Version,
		Timestamp: rec.Timestamp,
	}
}
