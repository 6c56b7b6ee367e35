package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/stratadb/strata/codec"
	"github.com/stratadb/strata/internal/hash"
)

// Decode parses and fully verifies a bundle. Every entry checksum is checked
// before any entry is returned, so a decoded Bundle is safe to apply as a
// unit.
func Decode(data []byte) (*Bundle, error) {
	h, payload, err := open(data)
	if err != nil {
		return nil, err
	}

	cdc, ok := codec.ByName(h.CodecName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidFormat, h.CodecName)
	}

	entries := make([]Entry, 0, h.EntryCount)
	err = walkEntries(payload, h.EntryCount, func(i uint64, data []byte) error {
		var e Entry
		if err := cdc.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrInvalidFormat, i, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Bundle{Branch: h.Branch, Entries: entries}, nil
}

// Validate recomputes every entry checksum without materializing entries and
// returns the bundle's descriptive header info.
func Validate(data []byte) (Info, error) {
	h, payload, err := open(data)
	if err != nil {
		return Info{}, err
	}
	if _, ok := codec.ByName(h.CodecName); !ok {
		return Info{}, fmt.Errorf("%w: unknown codec %q", ErrInvalidFormat, h.CodecName)
	}
	if err := walkEntries(payload, h.EntryCount, func(uint64, []byte) error { return nil }); err != nil {
		return Info{}, err
	}
	return Info{
		Branch:        h.Branch,
		FormatVersion: formatVersion,
		Codec:         h.CodecName,
		Compression:   h.Compression.String(),
		EntryCount:    h.EntryCount,
		PayloadBytes:  len(payload),
	}, nil
}

func open(data []byte) (header, []byte, error) {
	r := bytes.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return header{}, nil, err
	}
	rest := make([]byte, r.Len())
	if _, err := io.ReadFull(r, rest); err != nil && err != io.EOF {
		return header{}, nil, fmt.Errorf("%w: truncated payload", ErrInvalidFormat)
	}
	payload, err := decompress(rest, h.Compression)
	if err != nil {
		return header{}, nil, err
	}
	return h, payload, nil
}

// walkEntries iterates the length-prefixed entry frames, verifying each
// CRC32C checksum before handing the frame to fn.
func walkEntries(payload []byte, count uint64, fn func(i uint64, data []byte) error) error {
	off := 0
	for i := uint64(0); i < count; i++ {
		if off+4 > len(payload) {
			return fmt.Errorf("%w: truncated entry %d", ErrInvalidFormat, i)
		}
		n := int(binary.LittleEndian.Uint32(payload[off : off+4]))
		off += 4
		if off+n+4 > len(payload) {
			return fmt.Errorf("%w: truncated entry %d", ErrInvalidFormat, i)
		}
		data := payload[off : off+n]
		off += n
		want := binary.LittleEndian.Uint32(payload[off : off+4])
		off += 4
		if got := hash.CRC32C(data); got != want {
			return &ChecksumError{Entry: i, Expected: want, Actual: got}
		}
		if err := fn(i, data); err != nil {
			return err
		}
	}
	if off != len(payload) {
		return fmt.Errorf("%w: %d trailing payload bytes", ErrInvalidFormat, len(payload)-off)
	}
	return nil
}
