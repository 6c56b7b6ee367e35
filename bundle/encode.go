package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/stratadb/strata/internal/hash"
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// Collect gathers the full contents of the given spaces into bundle
// entries. Value stores contribute every record of every key in stamp order,
// tombstones included, the event log contributes every event, and vector
// stores contribute collection definitions followed by their per-key record
// histories. A bundle captures the branch's timeline, so as-of reads resolve
// the same way after import.
func Collect(spaces []*space.Space) []Entry {
	var entries []Entry
	for _, sp := range spaces {
		entries = appendValueEntries(entries, sp.Name, PrimitiveKV, sp.KV)
		entries = appendValueEntries(entries, sp.Name, PrimitiveState, sp.State)
		entries = appendValueEntries(entries, sp.Name, PrimitiveJSON, sp.JSON)
		for _, ev := range sp.Events.All() {
			entries = append(entries, Entry{
				Space:     sp.Name,
				Primitive: PrimitiveEvent,
				Sequence:  ev.Sequence,
				EventType: ev.Type,
				Payload:   ev.Payload,
				Version:   ev.Version,
				Timestamp: ev.Timestamp,
			})
		}
		for _, cs := range sp.Vector.Collections() {
			entries = append(entries, Entry{
				Space:      sp.Name,
				Primitive:  PrimitiveCollection,
				Collection: cs.Name,
				Dimension:  cs.Dimension,
				Metric:     cs.Metric.String(),
				Version:    cs.CreatedAt.Version,
				Timestamp:  cs.CreatedAt.Timestamp,
			})
			name := cs.Name
			// The collection was just listed, so the walk cannot miss.
			_ = sp.Vector.ForEachHistory(name, func(key string, recs []store.Record[vector.Entry]) bool {
				for _, rec := range recs {
					entries = append(entries, Entry{
						Space:      sp.Name,
						Primitive:  PrimitiveVector,
						Collection: name,
						Key:        key,
						Embedding:  rec.Value.Embedding,
						Metadata:   rec.Value.Metadata,
						Version:    rec.Version,
						Timestamp:  rec.Timestamp,
						Tombstone:  rec.Tombstone,
					})
				}
				return true
			})
		}
	}
	return entries
}

func appendValueEntries(entries []Entry, spaceName string, p Primitive, s *store.Store[value.Value]) []Entry {
	s.Range(func(key string, recs []store.Record[value.Value]) bool {
		for _, rec := range recs {
			entries = append(entries, Entry{
				Space:     spaceName,
				Primitive: p,
				Key:       key,
				Value:     rec.Value,
				Version:   rec.Version,
				Timestamp: rec.Timestamp,
				Tombstone: rec.Tombstone,
			})
		}
		return true
	})
	return entries
}

// Encode serializes a branch's entries into the bundle wire format.
func Encode(branch string, entries []Entry, opts Options) ([]byte, error) {
	cdc := opts.codec()

	var payload bytes.Buffer
	var lenBuf [4]byte
	for i := range entries {
		data, err := cdc.Marshal(&entries[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode bundle entry %d: %w", i, err)
		}
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data))) //nolint:gosec
		payload.Write(lenBuf[:])
		payload.Write(data)
		binary.LittleEndian.PutUint32(lenBuf[:], hash.CRC32C(data))
		payload.Write(lenBuf[:])
	}

	compressed, err := compress(payload.Bytes(), opts.Compression)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	err = writeHeader(&out, header{
		Flags:      opts.Compression.flag(),
		EntryCount: uint64(len(entries)),
		CodecName:  cdc.Name(),
		Branch:     branch,
	})
	if err != nil {
		return nil, err
	}
	out.Write(compressed)
	return out.Bytes(), nil
}
