package strata

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/stratadb/strata/blobstore"
	"github.com/stratadb/strata/codec"
	"github.com/stratadb/strata/store"
)

type options struct {
	codec           codec.Codec
	logger          *Logger
	metrics         MetricsCollector
	blobs           blobstore.Store
	retention       store.RetentionPolicy
	compactInterval time.Duration
	compactRate     rate.Limit
}

func defaultOptions() options {
	return options{
		codec:       codec.Default,
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		compactRate: rate.Inf,
	}
}

// Option configures Open/Cache behavior.
type Option func(*options)

// WithCodec configures the codec used for snapshots and bundles. If nil is
// passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics configures an operational metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithBlobStore overrides where snapshots are written. This is how an engine
// persists to MinIO or S3 instead of the local filesystem:
//
//	db, err := strata.Open("", strata.WithBlobStore(s3store))
func WithBlobStore(b blobstore.Store) Option {
	return func(o *options) {
		o.blobs = b
	}
}

// WithRetention bounds how much history compaction keeps per key. The newest
// record of every key always survives, so current state is never lost.
func WithRetention(policy store.RetentionPolicy) Option {
	return func(o *options) {
		o.retention = policy
	}
}

// WithCompaction enables the background compaction loop. Every interval the
// engine prunes history beyond the retention policy. Zero disables the loop;
// Compact can still be called manually.
func WithCompaction(interval time.Duration) Option {
	return func(o *options) {
		o.compactInterval = interval
	}
}

// WithCompactionRate caps how many spaces per second a background compaction
// pass touches, keeping compaction from starving foreground work.
func WithCompactionRate(spacesPerSecond float64) Option {
	return func(o *options) {
		if spacesPerSecond <= 0 {
			o.compactRate = rate.Inf
			return
		}
		o.compactRate = rate.Limit(spacesPerSecond)
	}
}
