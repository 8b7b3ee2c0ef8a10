package persist

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/zeebo/mon"
)

// ReplayFunc applies one record to an engine. Persistence collaborators
// never import the core's generic Engine type directly (spec §5:
// collaborators observe the engine only through its API); the caller
// supplies a closure that knows how to turn keyBytes back into its own K
// and call Engine.Insert/Engine.Delete.
type ReplayFunc func(op Op, keyBytes []byte, value []byte, hasValue bool) error

// AOFWriter appends Records to a segment file, matching spec §6's
// persistence hook: "for every successful mutating operation" the engine
// (via the caller) emits a record in linearization order.
type AOFWriter struct {
	f          *os.File
	SegmentID  uuid.UUID
	logger     hclog.Logger
	appendCost mon.Thunk
}

// NewAOFWriter opens (creating if necessary) a segment file at path and
// assigns it a fresh segment ID.
func NewAOFWriter(path string, logger hclog.Logger) (*AOFWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AOFWriter{f: f, SegmentID: uuid.New(), logger: logger}, nil
}

// Append writes one record: op(1) | timestamp-unixnano(8) |
// fingerprint(8) | keyLen(4) | key | hasValue(1) | valueLen(4) | value.
func (w *AOFWriter) Append(op Op, fingerprint uint64, keyBytes, value []byte, hasValue bool) (err error) {
	timer := w.appendCost.Start()
	defer timer.Stop(&err)

	var header [1 + 8 + 8 + 4]byte
	header[0] = byte(op)
	binary.LittleEndian.PutUint64(header[1:9], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint64(header[9:17], fingerprint)
	binary.LittleEndian.PutUint32(header[17:21], uint32(len(keyBytes)))
	if _, err = w.f.Write(header[:]); err != nil {
		return Class.Wrap(err)
	}
	if _, err = w.f.Write(keyBytes); err != nil {
		return Class.Wrap(err)
	}
	var valueHeader [1 + 4]byte
	if hasValue {
		valueHeader[0] = 1
	}
	binary.LittleEndian.PutUint32(valueHeader[1:5], uint32(len(value)))
	if _, err = w.f.Write(valueHeader[:]); err != nil {
		return Class.Wrap(err)
	}
	if hasValue {
		if _, err = w.f.Write(value); err != nil {
			return Class.Wrap(err)
		}
	}
	w.logger.Trace("aof append", "op", op, "fingerprint", fingerprint)
	return nil
}

// Sync flushes the segment file to stable storage.
func (w *AOFWriter) Sync() error {
	return Class.Wrap(w.f.Sync())
}

// Close closes the underlying segment file.
func (w *AOFWriter) Close() error {
	return Class.Wrap(w.f.Close())
}

// AOFReader replays a segment file written by AOFWriter.
type AOFReader struct {
	f      *os.File
	logger hclog.Logger
}

func NewAOFReader(path string, logger hclog.Logger) (*AOFReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AOFReader{f: f, logger: logger}, nil
}

// aofRecord is one decoded record off the wire, including the fingerprint
// that ReplayFunc itself has no room for.
type aofRecord struct {
	op          Op
	fingerprint uint64
	key         []byte
	value       []byte
	hasValue    bool
}

func (r *AOFReader) readRecord() (rec aofRecord, err error) {
	var header [1 + 8 + 8 + 4]byte
	if _, err = io.ReadFull(r.f, header[:]); err != nil {
		return rec, err
	}
	rec.op = Op(header[0])
	rec.fingerprint = binary.LittleEndian.Uint64(header[9:17])
	keyLen := binary.LittleEndian.Uint32(header[17:21])
	rec.key = make([]byte, keyLen)
	if _, err = io.ReadFull(r.f, rec.key); err != nil {
		return rec, err
	}

	var valueHeader [1 + 4]byte
	if _, err = io.ReadFull(r.f, valueHeader[:]); err != nil {
		return rec, err
	}
	rec.hasValue = valueHeader[0] == 1
	valueLen := binary.LittleEndian.Uint32(valueHeader[1:5])
	if rec.hasValue {
		rec.value = make([]byte, valueLen)
		if _, err = io.ReadFull(r.f, rec.value); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Replay reads every record in order and invokes fn, matching spec §6's
// determinism requirement: replaying identical records against an engine
// constructed with the same hasher seed and initial capacity reproduces
// identical engine state.
func (r *AOFReader) Replay(fn ReplayFunc) (count int, err error) {
	var replayCost mon.Thunk
	timer := replayCost.Start()
	defer timer.Stop(&err)

	for {
		rec, readErr := r.readRecord()
		if readErr != nil {
			if readErr == io.EOF {
				return count, nil
			}
			return count, Class.Wrap(readErr)
		}
		if err = fn(rec.op, rec.key, rec.value, rec.hasValue); err != nil {
			return count, Class.Wrap(err)
		}
		count++
	}
}

// ReplayFiltered behaves like Replay, but consults filter before applying
// each delete record: a fingerprint the filter has never seen cannot have
// a live entry to remove, so the record is skipped without calling fn.
// filter is also grown with every insert record's fingerprint as replay
// proceeds, so a record inserted earlier in the same replay is never
// mistaken for one the filter hasn't seen yet. Used by Hybrid.Recover to
// fast-reject stale deletes left in an AOF tail from before the last
// checkpoint.
func (r *AOFReader) ReplayFiltered(filter *bloom.BloomFilter, fn ReplayFunc) (count int, err error) {
	var replayCost mon.Thunk
	timer := replayCost.Start()
	defer timer.Stop(&err)

	var fpBytes [8]byte
	for {
		rec, readErr := r.readRecord()
		if readErr != nil {
			if readErr == io.EOF {
				return count, nil
			}
			return count, Class.Wrap(readErr)
		}
		binary.LittleEndian.PutUint64(fpBytes[:], rec.fingerprint)
		if rec.op == OpDelete && filter != nil && !filter.Test(fpBytes[:]) {
			r.logger.Trace("aof replay skipped stale delete", "fingerprint", rec.fingerprint)
			continue
		}
		if rec.op == OpInsert && filter != nil {
			filter.Add(fpBytes[:])
		}
		if err = fn(rec.op, rec.key, rec.value, rec.hasValue); err != nil {
			return count, Class.Wrap(err)
		}
		count++
	}
}

func (r *AOFReader) Close() error {
	return Class.Wrap(r.f.Close())
}
