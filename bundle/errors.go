package bundle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when the input is not a bundle, or the
	// header declares a format version this build does not understand.
	ErrInvalidFormat = errors.New("bundle: invalid format")

	// ErrChecksum is returned when an entry checksum does not match its
	// payload. A bundle with any checksum failure is rejected in full.
	ErrChecksum = errors.New("bundle: checksum mismatch")
)

// ChecksumError reports the first entry whose checksum failed verification.
type ChecksumError struct {
	Entry    uint64
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("bundle: checksum mismatch at entry %d: expected %08x, got %08x", e.Entry, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksum }
