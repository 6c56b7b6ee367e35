package bundle

import (
	"fmt"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/distance"
	"github.com/stratadb/strata/eventlog"
	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// Apply writes a decoded bundle into a branch's spaces, replaying every
// historical record with its original version and timestamp so as-of reads
// resolve identically on the restored branch. getSpace resolves (creating
// when absent) the space for a name. The target branch must be fresh: event
// sequences restore gaplessly only onto an empty log.
//
// Entries were checksum-verified during Decode, so a failure here indicates a
// target-state problem, not corruption.
func Apply(b *Bundle, getSpace func(name string) *space.Space) (int, error) {
	applied := 0
	var pending vectorRun
	for i := range b.Entries {
		e := &b.Entries[i]
		sp := getSpace(e.Space)
		if e.Primitive != PrimitiveVector {
			if err := pending.flush(getSpace); err != nil {
				return applied, err
			}
		}
		switch e.Primitive {
		case PrimitiveKV:
			applyValue(sp.KV, e)
		case PrimitiveState:
			applyValue(sp.State, e)
		case PrimitiveJSON:
			applyValue(sp.JSON, e)
		case PrimitiveEvent:
			ok := sp.Events.AppendRecord(eventOf(e))
			if !ok {
				return applied, fmt.Errorf("bundle: event sequence %d does not extend the target log", e.Sequence)
			}
		case PrimitiveCollection:
			metric, err := distance.ParseMetric(e.Metric)
			if err != nil {
				return applied, fmt.Errorf("bundle: collection %q: %w", e.Collection, err)
			}
			err = sp.Vector.RestoreCollection(vector.CollectionState{
				Name:      e.Collection,
				Dimension: e.Dimension,
				Metric:    metric,
				CreatedAt: clock.Stamp{Version: e.Version, Timestamp: e.Timestamp},
			})
			if err != nil {
				return applied, fmt.Errorf("bundle: collection %q: %w", e.Collection, err)
			}
		case PrimitiveVector:
			if err := pending.add(e, getSpace); err != nil {
				return applied, err
			}
		default:
			return applied, fmt.Errorf("%w: unknown primitive %q", ErrInvalidFormat, e.Primitive)
		}
		applied++
	}
	if err := pending.flush(getSpace); err != nil {
		return applied, err
	}
	return applied, nil
}

// vectorRun batches consecutive vector entries of one key so the whole
// history lands through a single replay, keeping the metadata index in step
// with the key's newest live record.
type vectorRun struct {
	space      string
	collection string
	key        string
	recs       []store.Record[vector.Entry]
}

func (r *vectorRun) add(e *Entry, getSpace func(name string) *space.Space) error {
	if len(r.recs) > 0 && (r.space != e.Space || r.collection != e.Collection || r.key != e.Key) {
		if err := r.flush(getSpace); err != nil {
			return err
		}
	}
	r.space, r.collection, r.key = e.Space, e.Collection, e.Key
	r.recs = append(r.recs, store.Record[vector.Entry]{
		Value: vector.Entry{
			Embedding: e.Embedding,
			Metadata:  e.Metadata,
		},
		Version:   e.Version,
		Timestamp: e.Timestamp,
		Tombstone: e.Tombstone,
	})
	return nil
}

func (r *vectorRun) flush(getSpace func(name string) *space.Space) error {
	if len(r.recs) == 0 {
		return nil
	}
	sp := getSpace(r.space)
	err := sp.Vector.RestoreHistory(r.collection, r.key, r.recs)
	if err != nil {
		return fmt.Errorf("bundle: vector %s/%s: %w", r.collection, r.key, err)
	}
	r.recs = nil
	return nil
}

func applyValue(s *store.Store[value.Value], e *Entry) {
	s.PutRecord(e.Key, store.Record[value.Value]{
		Value:     e.Value,
		Version:   e.Version,
		Timestamp: e.Timestamp,
		Tombstone: e.Tombstone,
	})
}

func eventOf(e *Entry) eventlog.Event {
	return eventlog.Event{
		Sequence:  e.Sequence,
		Type:      e.EventType,
		Payload:   e.Payload,
		Version:   e.Version,
		Timestamp: e.Timestamp,
	}
}
