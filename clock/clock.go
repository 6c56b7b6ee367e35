// Package clock issues the (version, timestamp) pairs that order every
// mutation within a branch.
package clock

import (
	"sync"
	"time"
)

// Stamp is an issued (version, timestamp) pair. Versions increase by one per
// mutation; timestamps are microseconds since the Unix epoch and strictly
// increase, so an as-of read at the timestamp of write N never observes
// write N+1.
type Stamp struct {
	Version   uint64 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
}

// Clock is a per-branch version clock. The zero value is not usable; use New.
type Clock struct {
	mu      sync.Mutex
	version uint64
	lastTs  uint64
	now     func() uint64
}

// New returns a clock starting at the given version (0 for a fresh branch).
func New(version uint64) *Clock {
	return &Clock{version: version, now: nowMicros}
}

// NewWithNow returns a clock with a custom time source, for tests.
func NewWithNow(version uint64, now func() uint64) *Clock {
	return &Clock{version: version, now: now}
}

func nowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

// Tick issues the next (version, timestamp) pair.
func (c *Clock) Tick() Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	ts := c.now()
	if ts <= c.lastTs {
		ts = c.lastTs + 1
	}
	c.lastTs = ts
	return Stamp{Version: c.version, Timestamp: ts}
}

// Version returns the most recently issued version.
func (c *Clock) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Now returns the current clock time without issuing a version. The returned
// timestamp is not reserved; a later Tick may issue the same value.
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now()
	if ts <= c.lastTs {
		ts = c.lastTs + 1
	}
	return ts
}

// Advance moves the version counter forward to at least v. Used when
// importing data that already carries versions.
func (c *Clock) Advance(v uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v > c.version {
		c.version = v
	}
}

// ObserveTimestamp moves the timestamp floor forward to at least ts, so
// future stamps sort after imported records.
func (c *Clock) ObserveTimestamp(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts > c.lastTs {
		c.lastTs = ts
	}
}
