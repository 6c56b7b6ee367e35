package strata

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operation outcomes. Implement it to integrate
// with a monitoring system; the engine calls it outside its own locks.
type MetricsCollector interface {
	// RecordRead is called after each read operation.
	RecordRead(err error)
	// RecordWrite is called after each mutating operation.
	RecordWrite(err error)
	// RecordSearch is called after each search with its duration.
	RecordSearch(duration time.Duration, err error)
	// RecordTxn is called when a transaction closes; committed is false for
	// rollbacks.
	RecordTxn(committed bool)
	// RecordFlush is called after each snapshot flush.
	RecordFlush(duration time.Duration, err error)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRead(error)                  {}
func (NoopMetricsCollector) RecordWrite(error)                 {}
func (NoopMetricsCollector) RecordSearch(time.Duration, error) {}
func (NoopMetricsCollector) RecordTxn(bool)                    {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)  {}

// BasicMetricsCollector counts operations in memory with atomics. Useful for
// debugging and tests without an external monitoring system.
type BasicMetricsCollector struct {
	Reads            atomic.Int64
	ReadErrors       atomic.Int64
	Writes           atomic.Int64
	WriteErrors      atomic.Int64
	Searches         atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	TxnCommits       atomic.Int64
	TxnRollbacks     atomic.Int64
	Flushes          atomic.Int64
	FlushErrors      atomic.Int64
}

func (c *BasicMetricsCollector) RecordRead(err error) {
	c.Reads.Add(1)
	if err != nil {
		c.ReadErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordWrite(err error) {
	c.Writes.Add(1)
	if err != nil {
		c.WriteErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordSearch(duration time.Duration, err error) {
	c.Searches.Add(1)
	c.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.SearchErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordTxn(committed bool) {
	if committed {
		c.TxnCommits.Add(1)
	} else {
		c.TxnRollbacks.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	c.Flushes.Add(1)
	if err != nil {
		c.FlushErrors.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of a BasicMetricsCollector.
type MetricsSnapshot struct {
	Reads        int64
	ReadErrors   int64
	Writes       int64
	WriteErrors  int64
	Searches     int64
	SearchErrors int64
	TxnCommits   int64
	TxnRollbacks int64
	Flushes      int64
	FlushErrors  int64
}

// Snapshot copies the counters.
func (c *BasicMetricsCollector) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Reads:        c.Reads.Load(),
		ReadErrors:   c.ReadErrors.Load(),
		Writes:       c.Writes.Load(),
		WriteErrors:  c.WriteErrors.Load(),
		Searches:     c.Searches.Load(),
		SearchErrors: c.SearchErrors.Load(),
		TxnCommits:   c.TxnCommits.Load(),
		TxnRollbacks: c.TxnRollbacks.Load(),
		Flushes:      c.Flushes.Load(),
		FlushErrors:  c.FlushErrors.Load(),
	}
}
