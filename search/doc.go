// Package search implements cross-primitive retrieval over a branch: a BM25
// keyword pass, a feature-hashed vector pass per collection, and a hybrid
// mode fusing both. Optional stages expand the query with stemmed variants
// and rerank candidates by phrase and proximity evidence.
package search

import (
	"github.com/stratadb/strata/value"
)

// Primitive names the store a document came from.
const (
	PrimitiveKV     = "kv"
	PrimitiveState  = "state"
	PrimitiveEvent  = "event"
	PrimitiveJSON   = "json"
	PrimitiveVector = "vector"
)

// DocID uniquely identifies a searchable entity. For events Key is the
// decimal sequence number; for vectors it is collection-qualified.
type DocID struct {
	Space     string
	Primitive string
	Key       string
}

// Document is one searchable unit gathered from a branch.
type Document struct {
	ID        DocID
	Text      string
	Tokens    []string
	Payload   value.Value
	Version   uint64
	Timestamp uint64
}
