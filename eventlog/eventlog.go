// Package eventlog implements the append-only event primitive.
//
// Sequences are per-space, gapless, and assigned at append time; the log is
// immutable once written. Time travel only changes visibility: an asOf read
// hides events stamped after the cutoff but nothing is ever removed.
package eventlog

import (
	"sync"

	"github.com/stratadb/strata/clock"
	"github.com/stratadb/strata/value"
)

// Event is one appended entry.
type Event struct {
	Sequence  uint64      `json:"sequence"`
	Type      string      `json:"type"`
	Payload   value.Value `json:"payload"`
	Version   uint64      `json:"version"`
	Timestamp uint64      `json:"timestamp"`
}

// Log is the append-only event sequence for one space.
type Log struct {
	mu     sync.RWMutex
	clk    *clock.Clock
	events []Event
}

// New creates an empty log bound to the branch clock.
func New(clk *clock.Clock) *Log {
	return &Log{clk: clk}
}

// Append stamps and stores a new event, returning it. Sequence numbers start
// at 1 and never repeat.
func (l *Log) Append(eventType string, payload value.Value) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.clk.Tick()
	ev := Event{
		Sequence:  uint64(len(l.events)) + 1,
		Type:      eventType,
		Payload:   payload.Clone(),
		Version:   st.Version,
		Timestamp: st.Timestamp,
	}
	l.events = append(l.events, ev)
	return ev
}

// AppendRecord restores a pre-stamped event during fork or import. The
// event's sequence must be the next in line; out-of-order restores are
// ignored to keep the log gapless.
func (l *Log) AppendRecord(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev.Sequence != uint64(len(l.events))+1 {
		return false
	}
	l.events = append(l.events, ev)
	l.clk.Advance(ev.Version)
	l.clk.ObserveTimestamp(ev.Timestamp)
	return true
}

// Get returns the event with the given sequence, if visible at asOf.
func (l *Log) Get(sequence uint64, asOf uint64) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if sequence == 0 || sequence > uint64(len(l.events)) {
		return Event{}, false
	}
	ev := l.events[sequence-1]
	if asOf != 0 && ev.Timestamp > asOf {
		return Event{}, false
	}
	return ev, true
}

// List returns events of the given type (all types when empty) with sequence
// strictly greater than after, ascending, capped at limit when positive, and
// restricted to those visible at asOf.
func (l *Log) List(eventType string, limit int, after uint64, asOf uint64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	start := after
	if start > uint64(len(l.events)) {
		start = uint64(len(l.events))
	}
	for i := start; i < uint64(len(l.events)); i++ {
		ev := l.events[i]
		if asOf != 0 && ev.Timestamp > asOf {
			break
		}
		if eventType != "" && ev.Type != eventType {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Count returns the total number of appended events.
func (l *Log) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.events))
}

// All returns a copy of the whole log in sequence order.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// CopyInto replays the whole log into dst and returns the number of events
// copied. Events are current state, so fork carries them all.
func (l *Log) CopyInto(dst *Log) int {
	copied := 0
	for _, ev := range l.All() {
		if dst.AppendRecord(ev) {
			copied++
		}
	}
	return copied
}

// TimeRange returns the first and last event timestamps, or (0, 0) when the
// log is empty.
func (l *Log) TimeRange() (oldest, latest uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.events) == 0 {
		return 0, 0
	}
	return l.events[0].Timestamp, l.events[len(l.events)-1].Timestamp
}
