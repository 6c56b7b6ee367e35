// Package blobstore abstracts where snapshot and bundle bytes live. The
// engine reads and writes whole blobs; backends cover the local filesystem,
// memory, and S3-compatible object storage.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a whole-blob store. Blobs are immutable once written: Put
// replaces the blob atomically or not at all.
type Store interface {
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Get reads a blob in full.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
