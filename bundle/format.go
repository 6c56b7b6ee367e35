package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var bundleMagic = [4]byte{'S', 'T', 'B', '1'}

const (
	formatVersion = uint16(1)

	// Low two flag bits select the payload compression.
	compressionNone = uint16(0)
	compressionZstd = uint16(1)
	compressionLZ4  = uint16(2)
	compressionMask = uint16(0x03)
)

// Compression selects the payload compression scheme.
type Compression uint16

const (
	CompressionZstd Compression = iota
	CompressionLZ4
	CompressionNone
)

func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionNone:
		return "none"
	default:
		return "zstd"
	}
}

func (c Compression) flag() uint16 {
	switch c {
	case CompressionLZ4:
		return compressionLZ4
	case CompressionNone:
		return compressionNone
	default:
		return compressionZstd
	}
}

func compressionFromFlags(flags uint16) (Compression, error) {
	switch flags & compressionMask {
	case compressionNone:
		return CompressionNone, nil
	case compressionZstd:
		return CompressionZstd, nil
	case compressionLZ4:
		return CompressionLZ4, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression flag %d", ErrInvalidFormat, flags&compressionMask)
	}
}

type header struct {
	Flags       uint16
	EntryCount  uint64
	CodecName   string
	Branch      string
	Compression Compression
}

func writeHeader(w io.Writer, h header) error {
	buf := make([]byte, 0, 16+len(h.CodecName)+len(h.Branch))
	buf = append(buf, bundleMagic[:]...)
	var fixed [12]byte
	binary.LittleEndian.PutUint16(fixed[0:2], formatVersion)
	binary.LittleEndian.PutUint16(fixed[2:4], h.Flags)
	binary.LittleEndian.PutUint64(fixed[4:12], h.EntryCount)
	buf = append(buf, fixed[:]...)
	buf = append(buf, uint8(len(h.CodecName)))
	buf = append(buf, h.CodecName...)
	buf = append(buf, uint8(len(h.Branch)))
	buf = append(buf, h.Branch...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write bundle header: %w", err)
	}
	return nil
}

func readHeader(r *bytes.Reader) (header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return header{}, fmt.Errorf("%w: short header", ErrInvalidFormat)
	}
	if magic != bundleMagic {
		return header{}, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}

	var fixed [12]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return header{}, fmt.Errorf("%w: short header", ErrInvalidFormat)
	}
	version := binary.LittleEndian.Uint16(fixed[0:2])
	if version != formatVersion {
		return header{}, fmt.Errorf("%w: unsupported format version %d", ErrInvalidFormat, version)
	}
	flags := binary.LittleEndian.Uint16(fixed[2:4])
	count := binary.LittleEndian.Uint64(fixed[4:12])

	codecName, err := readShortString(r)
	if err != nil {
		return header{}, err
	}
	branch, err := readShortString(r)
	if err != nil {
		return header{}, err
	}

	compression, err := compressionFromFlags(flags)
	if err != nil {
		return header{}, err
	}

	return header{
		Flags:       flags,
		EntryCount:  count,
		CodecName:   codecName,
		Branch:      branch,
		Compression: compression,
	}, nil
}

func readShortString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: short header", ErrInvalidFormat)
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: short header", ErrInvalidFormat)
	}
	return string(b), nil
}
