// Package bundle serializes the full contents of a branch into a portable,
// checksummed byte format and restores it again. A bundle is self-describing:
// the header records the codec and compression used to produce it, so any
// reader can decode a bundle without out-of-band configuration.
package bundle

import (
	"github.com/stratadb/strata/codec"
	"github.com/stratadb/strata/value"
)

// Primitive identifies which store an entry belongs to.
type Primitive string

const (
	PrimitiveKV         Primitive = "kv"
	PrimitiveState      Primitive = "state"
	PrimitiveEvent      Primitive = "event"
	PrimitiveJSON       Primitive = "json"
	PrimitiveVector     Primitive = "vector"
	PrimitiveCollection Primitive = "collection"
)

// Entry is a single exported record. Exactly one payload shape is populated
// depending on Primitive: value-store entries carry Key/Value, events carry
// Sequence/EventType/Payload, collection definitions carry Dimension/Metric
// with their creation stamp in Version/Timestamp, and vector records carry
// Collection/Key/Embedding/Metadata. Value-store and vector entries appear
// once per historical record, oldest first per key, with deletions flagged
// as tombstones.
type Entry struct {
	Space     string    `json:"space"`
	Primitive Primitive `json:"primitive"`

	Key   string      `json:"key,omitempty"`
	Value value.Value `json:"value,omitempty"`

	Sequence  uint64      `json:"sequence,omitempty"`
	EventType string      `json:"eventType,omitempty"`
	Payload   value.Value `json:"payload,omitempty"`

	Collection string      `json:"collection,omitempty"`
	Dimension  int         `json:"dimension,omitempty"`
	Metric     string      `json:"metric,omitempty"`
	Embedding  []float32   `json:"embedding,omitempty"`
	Metadata   value.Value `json:"metadata,omitempty"`

	Version   uint64 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
	Tombstone bool   `json:"tombstone,omitempty"`
}

// Bundle is a fully decoded and checksum-verified export.
type Bundle struct {
	Branch  string
	Entries []Entry
}

// Info summarizes a bundle without decoding entry payloads into a Bundle.
type Info struct {
	Branch        string `json:"branch"`
	FormatVersion uint16 `json:"formatVersion"`
	Codec         string `json:"codec"`
	Compression   string `json:"compression"`
	EntryCount    uint64 `json:"entryCount"`
	PayloadBytes  int    `json:"payloadBytes"`
}

// Options controls how a bundle is encoded. The zero value selects the
// default codec and zstd compression.
type Options struct {
	Codec       codec.Codec
	Compression Compression
}

func (o Options) codec() codec.Codec {
	if o.Codec == nil {
		return codec.Default
	}
	return o.Codec
}
