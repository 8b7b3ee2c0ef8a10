package persist

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"
)

// MmapSnapshot memory-maps a snapshot file for zero-copy read-only
// serving of a cold snapshot, matching zeebo/cascade's newLevel mmap
// technique (cascade.go). The file format is a flat sequence of
// fingerprint(8)|valueLen(4)|value records, written by whatever collector
// dumped an Engine.Snapshot to disk.
type MmapSnapshot struct {
	f    *os.File
	data []byte
}

// OpenMmapSnapshot memory-maps path read-only.
func OpenMmapSnapshot(path string) (*MmapSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Class.Wrap(err)
	}
	if info.Size() == 0 {
		return &MmapSnapshot{f: f}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, Class.Wrap(err)
	}
	return &MmapSnapshot{f: f, data: data}, nil
}

// Each calls cb for every (fingerprint, value) record in the mapped file,
// without copying it into the Go heap.
func (m *MmapSnapshot) Each(cb func(fingerprint uint64, value []byte) error) error {
	off := 0
	for off < len(m.data) {
		if off+12 > len(m.data) {
			return Class.New("truncated snapshot record header at offset %d", off)
		}
		fp := binary.LittleEndian.Uint64(m.data[off : off+8])
		valueLen := int(binary.LittleEndian.Uint32(m.data[off+8 : off+12]))
		off += 12
		if off+valueLen > len(m.data) {
			return Class.New("truncated snapshot record value at offset %d", off)
		}
		if err := cb(fp, m.data[off:off+valueLen]); err != nil {
			return err
		}
		off += valueLen
	}
	return nil
}

// Close unmaps the file and closes its descriptor. Mutations are never
// possible through MmapSnapshot — it is mapped PROT_READ only.
func (m *MmapSnapshot) Close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return Class.Wrap(err)
		}
	}
	return Class.Wrap(m.f.Close())
}

// WriteSnapshotFile writes entries (typically sourced from
// Engine.Snapshot) to path in MmapSnapshot's flat record format. The
// write lands via a temp-file-then-rename so a reader that opens path
// mid-write, or a process that crashes mid-write, never observes a
// partially written snapshot.
func WriteSnapshotFile(path string, entries func(yield func(fingerprint uint64, value []byte) error) error) error {
	var buf bytes.Buffer
	err := entries(func(fingerprint uint64, value []byte) error {
		var header [12]byte
		binary.LittleEndian.PutUint64(header[:8], fingerprint)
		binary.LittleEndian.PutUint32(header[8:12], uint32(len(value)))
		if _, err := buf.Write(header[:]); err != nil {
			return err
		}
		_, err := buf.Write(value)
		return err
	})
	if err != nil {
		return Class.Wrap(err)
	}
	return Class.Wrap(atomic.WriteFile(path, &buf))
}
