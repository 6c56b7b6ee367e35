package persist

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/stratadb/strata/blobstore"
	"github.com/stratadb/strata/branch"
	"github.com/stratadb/strata/codec"
	"github.com/stratadb/strata/internal/hash"
)

var snapshotMagic = [4]byte{'S', 'T', 'S', '1'}

const snapshotVersion = uint16(1)

// SnapshotBlob is the blob name a manager writes its snapshot under.
const SnapshotBlob = "strata.snapshot"

var (
	// ErrInvalidSnapshot is returned when the blob is not a snapshot or its
	// header is malformed.
	ErrInvalidSnapshot = errors.New("persist: invalid snapshot")

	// ErrChecksum is returned when the snapshot payload fails checksum
	// verification. A corrupt snapshot is never partially applied.
	ErrChecksum = errors.New("persist: snapshot checksum mismatch")
)

// Manager writes and reads engine snapshots through a blobstore.
type Manager struct {
	blobs blobstore.Store
	cdc   codec.Codec
}

// NewManager creates a snapshot manager. A nil codec selects the default.
func NewManager(blobs blobstore.Store, cdc codec.Codec) *Manager {
	if cdc == nil {
		cdc = codec.Default
	}
	return &Manager{blobs: blobs, cdc: cdc}
}

// Save captures the engine state and writes it as one atomic blob. The
// caller must quiesce writers for the duration of the capture.
func (p *Manager) Save(ctx context.Context, m *branch.Manager) error {
	snap := capture(m)
	raw, err := p.cdc.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	_ = enc.Close()

	var buf bytes.Buffer
	buf.Write(snapshotMagic[:])
	var fixed [8]byte
	binary.LittleEndian.PutUint16(fixed[0:2], snapshotVersion)
	binary.LittleEndian.PutUint16(fixed[2:4], 0) // reserved flags
	binary.LittleEndian.PutUint32(fixed[4:8], hash.CRC32C(compressed))
	buf.Write(fixed[:])
	name := p.cdc.Name()
	buf.WriteByte(uint8(len(name)))
	buf.WriteString(name)
	buf.Write(compressed)

	return p.blobs.Put(ctx, SnapshotBlob, buf.Bytes())
}

// Load reads the snapshot blob, verifies it, and restores it into the
// manager. It reports false without error when no snapshot exists yet.
func (p *Manager) Load(ctx context.Context, m *branch.Manager) (bool, error) {
	data, err := p.blobs.Get(ctx, SnapshotBlob)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != snapshotMagic {
		return false, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	var fixed [8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return false, fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	if v := binary.LittleEndian.Uint16(fixed[0:2]); v != snapshotVersion {
		return false, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}
	want := binary.LittleEndian.Uint32(fixed[4:8])

	nameLen, err := r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return false, fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	cdc, ok := codec.ByName(string(nameBytes))
	if !ok {
		return false, fmt.Errorf("%w: unknown codec %q", ErrInvalidSnapshot, string(nameBytes))
	}

	compressed := make([]byte, r.Len())
	if _, err := io.ReadFull(r, compressed); err != nil && err != io.EOF {
		return false, fmt.Errorf("%w: truncated payload", ErrInvalidSnapshot)
	}
	if got := hash.CRC32C(compressed); got != want {
		return false, fmt.Errorf("%w: expected %08x, got %08x", ErrChecksum, want, got)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return false, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return false, fmt.Errorf("%w: zstd payload: %v", ErrInvalidSnapshot, err)
	}

	var snap snapshot
	if err := cdc.Unmarshal(raw, &snap); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	restore(snap, m)
	return true, nil
}
