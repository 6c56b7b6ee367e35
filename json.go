package strata

import (
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/txn"
	"github.com/stratadb/strata/value"
)

// JSONPut stores a whole document under key. Paths address into it later:
// "$" is the document root, "$.a.b[0]" walks object fields and array
// indexes.
func (db *DB) JSONPut(space, key string, doc any) (Stamp, error) {
	if err := db.check(); err != nil {
		return Stamp{}, err
	}
	val, err := value.FromNative(doc)
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
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpJSONPut, Space: sp.Name, Key: key, Value: val}))
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	st := sp.JSON.Put(key, val)
	db.metrics.RecordWrite(nil)
	return st, nil
}

// JSONGet reads a document, or a path inside it, as of asOf (0 for now).
func (db *DB) JSONGet(space, key, path string, asOf uint64) (any, bool, error) {
	if err := db.check(); err != nil {
		return nil, false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return nil, false, err
	}
	doc, ok := db.jsonDoc(sp, key, asOf)
	if !ok {
		db.metrics.RecordRead(nil)
		return nil, false, nil
	}
	if path == "" {
		path = value.RootPath
	}
	v, found, err := value.GetPath(doc, path)
	db.metrics.RecordRead(err)
	if err != nil {
		return nil, false, validation("%v", err)
	}
	if !found {
		return nil, false, nil
	}
	return v.ToNative(), true, nil
}

// JSONSet writes a path inside a document, creating intermediate objects
// along the way. Setting "$" replaces the document; setting a path on a
// missing document starts from an empty object. Buffered inside an active
// transaction.
func (db *DB) JSONSet(space, key, path string, v any) (Stamp, error) {
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

	doc, ok := db.jsonDoc(sp, key, 0)
	if !ok {
		doc = value.Object(nil)
	}
	if path == "" {
		path = value.RootPath
	}
	updated, err := value.SetPath(doc, path, val)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Stamp{}, validation("%v", err)
	}

	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpJSONPut, Space: sp.Name, Key: key, Value: updated}))
		db.metrics.RecordWrite(err)
		return Stamp{}, err
	}
	st := sp.JSON.Put(key, updated)
	db.metrics.RecordWrite(nil)
	return st, nil
}

// JSONDeletePath removes a path from a document. Deleting "$" tombstones
// the document itself. The bool reports whether anything was removed.
func (db *DB) JSONDeletePath(space, key, path string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, err
	}
	if path == "" || path == value.RootPath {
		return db.JSONDelete(space, key)
	}

	doc, ok := db.jsonDoc(sp, key, 0)
	if !ok {
		db.metrics.RecordWrite(nil)
		return false, nil
	}
	updated, removed, err := value.DeletePath(doc, path)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, validation("%v", err)
	}
	if !removed {
		db.metrics.RecordWrite(nil)
		return false, nil
	}

	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpJSONPut, Space: sp.Name, Key: key, Value: updated}))
		db.metrics.RecordWrite(err)
		return err == nil, err
	}
	sp.JSON.Put(key, updated)
	db.metrics.RecordWrite(nil)
	return true, nil
}

// JSONDelete tombstones a whole document. Buffered inside an active
// transaction.
func (db *DB) JSONDelete(space, key string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return false, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpJSONDelete, Space: sp.Name, Key: key}))
		db.metrics.RecordWrite(err)
		return err == nil, err
	}
	ok := sp.JSON.Delete(key)
	db.metrics.RecordWrite(nil)
	return ok, nil
}

// JSONList pages through live document keys with prefix.
func (db *DB) JSONList(space, prefix string, limit int, cursor string, asOf uint64) (KeyPage, error) {
	if err := db.check(); err != nil {
		return KeyPage{}, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return KeyPage{}, err
	}
	page := sp.JSON.Keys(prefix, limit, cursor, asOf)
	db.metrics.RecordRead(nil)
	return page, nil
}

// jsonDoc reads a document honoring the transaction overlay for current
// reads.
func (db *DB) jsonDoc(sp *space.Space, key string, asOf uint64) (value.Value, bool) {
	if asOf == 0 {
		if tx := db.activeTxn(); tx != nil {
			if pending, buffered := tx.Lookup(sp.Name, "json", key); buffered {
				if pending == nil {
					return value.Value{}, false
				}
				return *pending, true
			}
		}
	}
	return sp.JSON.Get(key, asOf)
}
