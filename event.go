package strata

import (
	"github.com/stratadb/strata/eventlog"
	"github.com/stratadb/strata/txn"
	"github.com/stratadb/strata/value"
)

// Event is one entry of a space's append-only log.
type Event struct {
	Sequence  uint64 `json:"sequence"`
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Version   uint64 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
}

func eventOut(ev eventlog.Event) Event {
	return Event{
		Sequence:  ev.Sequence,
		Type:      ev.Type,
		Payload:   ev.Payload.ToNative(),
		Version:   ev.Version,
		Timestamp: ev.Timestamp,
	}
}

// EventAppend appends an event to the space's log. Sequence numbers start at
// 1 and never repeat. Inside a transaction the append is buffered; the
// returned event is zero until commit assigns its sequence.
func (db *DB) EventAppend(space, eventType string, payload any) (Event, error) {
	if err := db.check(); err != nil {
		return Event{}, err
	}
	val, err := value.FromNative(payload)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Event{}, validation("%v", err)
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordWrite(err)
		return Event{}, err
	}
	if tx := db.activeTxn(); tx != nil {
		err := translateError(tx.Buffer(txn.Op{Kind: txn.OpEventAppend, Space: sp.Name, EventType: eventType, Value: val}))
		db.metrics.RecordWrite(err)
		return Event{}, err
	}
	ev := sp.Events.Append(eventType, val)
	db.metrics.RecordWrite(nil)
	return eventOut(ev), nil
}

// EventGet returns the event with the given sequence, if visible at asOf
// (0 for now).
func (db *DB) EventGet(space string, sequence, asOf uint64) (Event, bool, error) {
	if err := db.check(); err != nil {
		return Event{}, false, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return Event{}, false, err
	}
	ev, ok := sp.Events.Get(sequence, asOf)
	db.metrics.RecordRead(nil)
	if !ok {
		return Event{}, false, nil
	}
	return eventOut(ev), true, nil
}

// Events lists events in sequence order. eventType filters by type (""
// for all), limit caps the result (0 for unlimited), after skips sequences
// at or below it, and asOf scopes the read. With an active transaction and
// asOf 0, the transaction's pending appends follow the committed events,
// with sequence 0 since commit has not assigned one yet.
func (db *DB) Events(space, eventType string, limit int, after, asOf uint64) ([]Event, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return nil, err
	}
	evs := sp.Events.List(eventType, limit, after, asOf)
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, eventOut(ev))
	}
	if asOf == 0 {
		if tx := db.activeTxn(); tx != nil {
			for _, op := range tx.PendingEvents(sp.Name) {
				if eventType != "" && op.EventType != eventType {
					continue
				}
				if limit > 0 && len(out) >= limit {
					break
				}
				out = append(out, Event{Type: op.EventType, Payload: op.Value.ToNative()})
			}
		}
	}
	db.metrics.RecordRead(nil)
	return out, nil
}

// EventCount returns the number of committed events in the space's log.
func (db *DB) EventCount(space string) (uint64, error) {
	if err := db.check(); err != nil {
		return 0, err
	}
	sp, err := db.spaceFor(space)
	if err != nil {
		db.metrics.RecordRead(err)
		return 0, err
	}
	n := sp.Events.Count()
	db.metrics.RecordRead(nil)
	return n, nil
}
