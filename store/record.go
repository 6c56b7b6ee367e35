// Package store implements the generic versioned mapping engine backing the
// KV, state, JSON, and vector primitives.
//
// Every write appends a Record to the key's history; deletes append a
// tombstone. Reads resolve "the latest record with timestamp <= asOf",
// which makes time travel a plain bounded search over the history.
package store

// Record is one version of a key's value.
type Record[T any] struct {
	Value     T      `json:"value"`
	Version   uint64 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
	Tombstone bool   `json:"tombstone,omitempty"`
}

// entry holds the append-only history for one key, newest last.
type entry[T any] struct {
	records []Record[T]
}

// latest returns the newest record, tombstone or not.
func (e *entry[T]) latest() (Record[T], bool) {
	if len(e.records) == 0 {
		return Record[T]{}, false
	}
	return e.records[len(e.records)-1], true
}

// at returns the newest record with Timestamp <= asOf.
// asOf == 0 means "now".
func (e *entry[T]) at(asOf uint64) (Record[T], bool) {
	if asOf == 0 {
		return e.latest()
	}
	// Histories are typically short; a reverse linear scan beats binary
	// search on the common "recent read" case and is still bounded.
	for i := len(e.records) - 1; i >= 0; i-- {
		if e.records[i].Timestamp <= asOf {
			return e.records[i], true
		}
	}
	return Record[T]{}, false
}

// liveAt reports whether the key resolves to a non-tombstone record at asOf.
func (e *entry[T]) liveAt(asOf uint64) bool {
	rec, ok := e.at(asOf)
	return ok && !rec.Tombstone
}
