// Package persist implements the engine-facing persistence collaborators
// named in spec §1 and §6: an append-only log (AOF), an on-disk tree
// backend, a hybrid log+checkpoint backend, and a read-only mmap snapshot
// reader. None of these peek at engine internals; each observes the
// engine only through its public API (spec §5: "persistence collaborators
// observe the engine through its API, not by peeking its state").
package persist

import (
	"time"

	"github.com/zeebo/errs"
)

// Class is the zeebo/errs error class collaborators in this package wrap
// errors with, matching zeebo/cascade's error idiom for components that
// cross a file or process boundary.
var Class = errs.Class("persist")

// Op identifies the kind of mutation a Record describes.
type Op uint8

const (
	OpInsert Op = iota
	OpDelete
)

// Record is one entry in the append-only log, matching spec §6's
// persistence hook: "{op_code, fingerprint, value-or-none, timestamp}".
type Record struct {
	Op          Op
	Fingerprint uint64
	Value       []byte
	HasValue    bool
	Timestamp   time.Time
}
