package strata

// Snapshot is a read-only view of the current branch pinned to a fixed
// point in time. It exposes only read operations, so code handed a
// *Snapshot cannot mutate the database. Writes made after the snapshot was
// taken are invisible through it.
type Snapshot struct {
	db   *DB
	asOf uint64
}

// SnapshotAt pins a read-only view at the given microsecond timestamp.
// Zero pins it at the current branch clock's present, freezing out any
// later writes.
func (db *DB) SnapshotAt(asOf uint64) (*Snapshot, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	if asOf == 0 {
		b, err := db.currentBranch()
		if err != nil {
			return nil, err
		}
		asOf = b.Clock().Now()
	}
	return &Snapshot{db: db, asOf: asOf}, nil
}

// AsOf returns the timestamp the view is pinned to.
func (s *Snapshot) AsOf() uint64 { return s.asOf }

// Get reads a key-value entry as it stood at the snapshot time.
func (s *Snapshot) Get(space, key string) (any, bool, error) {
	return s.db.GetAsOf(space, key, s.asOf)
}

// GetVersioned reads a key-value entry with its version stamp.
func (s *Snapshot) GetVersioned(space, key string) (VersionedValue, bool, error) {
	return s.db.GetVersioned(space, key, s.asOf)
}

// Keys pages through the keys that were live at the snapshot time.
func (s *Snapshot) Keys(space, prefix string, limit int, cursor string) (KeyPage, error) {
	return s.db.Keys(space, prefix, limit, cursor, s.asOf)
}

// StateGet reads a state cell as it stood at the snapshot time.
func (s *Snapshot) StateGet(space, key string) (VersionedValue, bool, error) {
	return s.db.StateGet(space, key, s.asOf)
}

// StateList pages through the state cells live at the snapshot time.
func (s *Snapshot) StateList(space, prefix string, limit int, cursor string) (KeyPage, error) {
	return s.db.StateList(space, prefix, limit, cursor, s.asOf)
}

// EventGet reads one event; events appended after the snapshot time are
// invisible.
func (s *Snapshot) EventGet(space string, sequence uint64) (Event, bool, error) {
	return s.db.EventGet(space, sequence, s.asOf)
}

// Events lists events visible at the snapshot time.
func (s *Snapshot) Events(space, eventType string, limit int, after uint64) ([]Event, error) {
	return s.db.Events(space, eventType, limit, after, s.asOf)
}

// JSONGet reads a document (or a path inside it) at the snapshot time.
func (s *Snapshot) JSONGet(space, key, path string) (any, bool, error) {
	return s.db.JSONGet(space, key, path, s.asOf)
}

// JSONList pages through the documents live at the snapshot time.
func (s *Snapshot) JSONList(space, prefix string, limit int, cursor string) (KeyPage, error) {
	return s.db.JSONList(space, prefix, limit, cursor, s.asOf)
}

// VectorGet reads a vector record at the snapshot time.
func (s *Snapshot) VectorGet(space, collection, key string) (VectorRecord, bool, error) {
	return s.db.VectorGet(space, collection, key, s.asOf)
}

// VectorSearch searches the records visible at the snapshot time. Any AsOf
// in opts is overridden by the snapshot's own pin.
func (s *Snapshot) VectorSearch(space, collection string, query []float32, k int, opts VectorSearchOptions) ([]VectorMatch, error) {
	opts.AsOf = s.asOf
	return s.db.VectorSearch(space, collection, query, k, opts)
}
