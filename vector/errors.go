package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound is returned when a referenced collection does not exist.
	ErrCollectionNotFound = errors.New("vector collection not found")
	// ErrCollectionExists is returned when creating a collection that already exists.
	ErrCollectionExists = errors.New("vector collection already exists")
	// ErrInvalidDimension is returned when a collection is created with a
	// non-positive dimension.
	ErrInvalidDimension = errors.New("collection dimension must be positive")
)

// DimensionError indicates a vector whose length does not match the
// collection's fixed dimension.
type DimensionError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch in collection %q: expected %d, got %d",
		e.Collection, e.Expected, e.Actual)
}

// NotFiniteError indicates a vector component that is NaN or infinite.
type NotFiniteError struct {
	Index int
}

func (e *NotFiniteError) Error() string {
	return fmt.Sprintf("vector component %d is not finite", e.Index)
}
