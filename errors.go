package strata

import (
	"errors"
	"fmt"

	"github.com/stratadb/strata/branch"
	"github.com/stratadb/strata/bundle"
	"github.com/stratadb/strata/persist"
	"github.com/stratadb/strata/txn"
	"github.com/stratadb/strata/vector"
)

// The seven error kinds every engine error resolves to. Check with
// errors.Is; the concrete cause stays reachable through errors.As and
// Unwrap.
var (
	// ErrNotFound is returned when a branch, space, collection, key, or
	// event does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input: unknown metrics or
	// modes, bad paths, corrupt bundles.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a CAS expectation or a strict merge
	// fails.
	ErrConflict = errors.New("conflict")

	// ErrState is returned when an operation is invalid for the current
	// lifecycle state: closed handle, duplicate branch, inactive
	// transaction.
	ErrState = errors.New("invalid state")

	// ErrConstraint is returned when an operation would violate a
	// structural constraint: deleting a non-empty space, a vector whose
	// length does not match the collection dimension, a non-finite
	// component.
	ErrConstraint = errors.New("constraint violated")

	// ErrAccessDenied is returned when a write reaches a read-only handle
	// or transaction.
	ErrAccessDenied = errors.New("access denied")

	// ErrIO is returned when the storage backend fails.
	ErrIO = errors.New("io error")
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = fmt.Errorf("%w: database is closed", ErrState)

// translateError unifies inner-package errors onto the engine's error kinds.
// Errors already carrying a kind pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrNotFound, ErrValidation, ErrConflict, ErrState, ErrConstraint, ErrAccessDenied, ErrIO} {
		if errors.Is(err, kind) {
			return err
		}
	}

	switch {
	case errors.Is(err, branch.ErrNotFound),
		errors.Is(err, vector.ErrCollectionNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)

	case errors.Is(err, branch.ErrExists),
		errors.Is(err, vector.ErrCollectionExists),
		errors.Is(err, branch.ErrCurrent),
		errors.Is(err, txn.ErrNotActive):
		return fmt.Errorf("%w: %w", ErrState, err)

	case errors.Is(err, txn.ErrReadOnly):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)

	case errors.Is(err, vector.ErrInvalidDimension):
		return fmt.Errorf("%w: %w", ErrConstraint, err)

	case errors.Is(err, bundle.ErrInvalidFormat),
		errors.Is(err, bundle.ErrChecksum),
		errors.Is(err, persist.ErrInvalidSnapshot),
		errors.Is(err, persist.ErrChecksum):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var dim *vector.DimensionError
	if errors.As(err, &dim) {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	var fin *vector.NotFiniteError
	if errors.As(err, &fin) {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	var conflict *branch.ConflictError
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}

	return err
}

func notFound(what, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, what, name)
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func errState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

func errConstraint(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraint, fmt.Sprintf(format, args...))
}
