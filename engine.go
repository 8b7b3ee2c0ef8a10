package mappy

import (
	"fmt"
	"sync"
)

// KeyEncoder turns a caller key into the bytes fed to the fingerprint
// hasher. The engine never stores K itself (spec §3), only its
// fingerprint, so this is the one place a caller's key type touches the
// core. The default encoder (used when nil is passed to NewEngine) calls
// fmt.Sprint, which allocates; callers on C1's hot-path no-allocation
// contract (spec §4.1) should supply their own zero-allocation encoder for
// their concrete K.
type KeyEncoder[K any] func(key K) []byte

func defaultKeyEncoder[K any](key K) []byte {
	return []byte(fmt.Sprint(key))
}

// Engine is C4, the maplet engine: it composes the quotient filter (C2)
// and the value table (C3) behind a key-value API, managing load,
// resizing, collision accounting, and statistics (spec §4.5).
//
// The filter and value table are protected by a single reader-writer
// lock, per spec §5: a writer lock is held for Insert, Delete, and Resize
// so that slot and value mutate together (invariant 4); a reader lock
// suffices for Query, Contains, FindSlotForKey, Len, Stats, and Snapshot.
type Engine[K comparable, V any] struct {
	mu     sync.RWMutex
	cfg    Config
	filter *quotientFilter
	values *valueTable[V]
	op     MergeOperator[V]
	hasher fingerprintHasher
	enc    KeyEncoder[K]

	collisions collisionDetector
	generation uint64
}

// NewEngine constructs an Engine per cfg, using op to combine values on
// fingerprint collision. enc may be nil to use the default
// fmt.Sprint-based key encoder.
func NewEngine[K comparable, V any](cfg Config, op MergeOperator[V], enc KeyEncoder[K]) (*Engine[K, V], error) {
	norm := cfg.normalize()
	if err := norm.validate(); err != nil {
		return nil, err
	}
	if enc == nil {
		enc = defaultKeyEncoder[K]
	}
	qBits := norm.qBits()
	rBits := norm.rBits()
	filter := newQuotientFilter(qBits, rBits, norm.allocFn(), norm.EnableDeletion)
	values := newValueTable[V](filter.size)
	hasher := newFingerprintHasher(norm.HasherFamily, norm.HasherSeed)
	return &Engine[K, V]{
		cfg:    norm,
		filter: filter,
		values: values,
		op:     op,
		hasher: hasher,
		enc:    enc,
	}, nil
}

func (e *Engine[K, V]) maxEntries() uint64 {
	return uint64(float64(e.filter.size) * e.cfg.MaxLoadFactor)
}

func (e *Engine[K, V]) fingerprintOf(k K) (q, r uint64) {
	return e.hasher.fingerprint(e.enc(k), e.filter.qBits, e.filter.rBits)
}

// Insert stores (k, v). On a fresh key this writes v directly; on a
// fingerprint collision (a true duplicate key or a distinct key sharing a
// fingerprint) it invokes the merge operator, unless EnableMerging is
// false, in which case the existing value is left untouched (spec §6's
// enable_merging option). Triggers an auto-resize before admission when the
// entry count has already reached MaxLoadFactor × capacity, so admitting
// one more would push the load factor past MaxLoadFactor (spec §4.5).
func (e *Engine[K, V]) Insert(k K, v V) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.filter.entries >= e.maxEntries() {
		if !e.cfg.AutoResize {
			return ErrCapacityExceeded
		}
		if err := e.resizeLocked(e.filter.size * 2); err != nil {
			return err
		}
	}

	q, r := e.fingerprintOf(k)
	result, slot, err := e.filter.Insert(q, r)
	if err != nil {
		return err
	}
	collision := result == AlreadyPresent
	e.collisions.record(collision)

	if collision && !e.cfg.EnableMerging {
		return nil
	}
	if err := e.values.merge(slot, v, e.op); err != nil {
		return fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}
	return nil
}

// Query returns the value associated with k — possibly the merge of the
// true value with colliding keys' values (spec §4.5's strong maplet
// property) — or false if k (or a fingerprint-equal key) was never
// inserted.
func (e *Engine[K, V]) Query(k K) (V, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q, r := e.fingerprintOf(k)
	slot, ok := e.filter.FindSlot(q, r)
	if !ok {
		var zero V
		return zero, false
	}
	return e.values.get(slot)
}

// Contains reports whether k's fingerprint is present.
func (e *Engine[K, V]) Contains(k K) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q, r := e.fingerprintOf(k)
	ok, _ := e.filter.Lookup(q, r)
	return ok
}

// Delete removes one occurrence of k. v is accepted for merge operators
// that track per-occurrence contributions (spec §4.5 lists it as a
// parameter "for multiset operators"); the shipped operators (merge.go) do
// not define an inverse, so it is otherwise unused here. Returns whether
// this was the last occurrence (the slot was physically released); a
// decrement that leaves other occurrences in place returns false, matching
// "was last occurrence?" in spec §4.5's table.
func (e *Engine[K, V]) Delete(k K, _ V) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, r := e.fingerprintOf(k)
	result, slot, physicallyRemoved := e.filter.Delete(q, r)
	if result == NotPresent {
		return false
	}
	if physicallyRemoved {
		e.values.clear(slot)
	}
	return physicallyRemoved
}

// FingerprintOf returns k's combined (quotient, remainder) fingerprint as
// a single uint64, the same value a Snapshot's entries carry. Exposed for
// collaborators that address the engine's storage by fingerprint rather
// than by key — a fingerprint-keyed persistence backend (pkg/persist's
// Tree) has no way to recover the original key, only the fingerprint the
// maplet's one-sided design retains.
func (e *Engine[K, V]) FingerprintOf(k K) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q, r := e.fingerprintOf(k)
	return e.filter.combine(q, r)
}

// InsertByFingerprint stores v at a pre-combined fingerprint directly,
// bypassing key hashing. Used to rebuild an engine's state from a
// fingerprint-keyed persistence backend (pkg/persist.Tree) without access
// to the original keys.
func (e *Engine[K, V]) InsertByFingerprint(fingerprint uint64, v V) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.filter.entries >= e.maxEntries() {
		if !e.cfg.AutoResize {
			return ErrCapacityExceeded
		}
		if err := e.resizeLocked(e.filter.size * 2); err != nil {
			return err
		}
	}

	q, r := e.filter.split(fingerprint)
	result, slot, err := e.filter.Insert(q, r)
	if err != nil {
		return err
	}
	collision := result == AlreadyPresent
	e.collisions.record(collision)

	if collision && !e.cfg.EnableMerging {
		return nil
	}
	if err := e.values.merge(slot, v, e.op); err != nil {
		return fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}
	return nil
}

// DeleteByFingerprint removes a fingerprint's entry directly, the
// fingerprint-addressed counterpart to Delete.
func (e *Engine[K, V]) DeleteByFingerprint(fingerprint uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, r := e.filter.split(fingerprint)
	result, slot, physicallyRemoved := e.filter.Delete(q, r)
	if result == NotPresent {
		return false
	}
	if physicallyRemoved {
		e.values.clear(slot)
	}
	return physicallyRemoved
}

// Len reports the count of distinct live fingerprints.
func (e *Engine[K, V]) Len() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filter.entries
}

// Stats reports the engine's current shape (spec §4.5's "Stats shape").
func (e *Engine[K, V]) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Capacity:           e.filter.size,
		PopulatedSlotCount: e.filter.entries,
		LoadFactor:         float64(e.filter.entries) / float64(e.filter.size),
		CollisionRate:      e.collisions.rate(),
		Len:                e.filter.entries,
		QBits:              e.filter.qBits,
		RBits:              e.filter.rBits,
	}
}

// FindSlotForKey returns k's actual slot index (after any shifting), or
// false if absent. This is the same bridge C2 exposes to C4, surfaced to
// callers that need a stable-until-next-resize handle (spec's design note
// on dropping cyclic "handle" references in favor of a plain slot index;
// Engine.generation, bumped on every resize, lets a caller detect that a
// previously obtained slot index is no longer valid).
func (e *Engine[K, V]) FindSlotForKey(k K) (uint64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q, r := e.fingerprintOf(k)
	return e.filter.FindSlot(q, r)
}

// Generation returns the count of resizes this engine has undergone.
// Slot indices obtained before a Resize are invalid afterward.
func (e *Engine[K, V]) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Resize rebuilds the engine at the given capacity (rounded up to the
// next power of two, per spec §4.2). Every previously inserted key
// remains present afterward (spec §8 property 5); stored values are
// preserved exactly when the merge operator is associative and
// commutative, and may differ (spec §9 Open Question 3) otherwise.
func (e *Engine[K, V]) Resize(newCapacity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resizeLocked(newCapacity)
}

func (e *Engine[K, V]) resizeLocked(newCapacity uint64) error {
	newQBits := qBitsForCapacity(newCapacity)
	if newQBits < minQBits {
		return ErrInvalidCapacity
	}
	if (uint64(1) << newQBits) < e.filter.entries {
		return ErrInvalidCapacity
	}
	newValues := newValueTable[V](uint64(1) << newQBits)
	newFilter, err := e.filter.Resize(newQBits, func(oldSlot, newSlot uint64) {
		if v, ok := e.values.get(oldSlot); ok {
			newValues.set(newSlot, v)
		}
	})
	if err != nil {
		return err
	}
	e.filter = newFilter
	e.values = newValues
	e.generation++
	return nil
}

// Snapshot returns a consistent, copied-out view of every populated slot
// (spec §6's snapshot hook), captured under a single read-lock acquisition.
func (e *Engine[K, V]) Snapshot() Snapshot[V] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var entries []SnapshotEntry[V]
	e.filter.Iterate(func(slot uint64, fp uint64) {
		v, ok := e.values.get(slot)
		if !ok {
			return
		}
		entries = append(entries, SnapshotEntry[V]{Slot: slot, Fingerprint: fp, Value: v})
	})
	return Snapshot[V]{
		Capacity:     e.filter.size,
		QBits:        e.filter.qBits,
		RBits:        e.filter.rBits,
		HasherSeed:   e.hasher.seed,
		HasherFamily: e.hasher.family,
		Entries:      entries,
	}
}

// DebugDump prints a textual, slot-by-slot representation of the engine
// to stdout, matching the teacher's Filter.DebugDump.
func (e *Engine[K, V]) DebugDump(full bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fmt.Printf("\nmaplet is %d slots (%d q bits) with %d entries (loaded %0.3f)\n",
		e.filter.size, e.filter.qBits, e.filter.entries, float64(e.filter.entries)/float64(e.filter.size))
	if !full {
		return
	}
	fmt.Printf("  slot   occ runend shifted remainder  value\n")
	skipped := 0
	for i := uint64(0); i < e.filter.size; i++ {
		view := e.filter.View(i)
		if view.Empty {
			skipped++
			continue
		}
		if skipped > 0 {
			fmt.Printf("          ...\n")
			skipped = 0
		}
		val, _ := e.values.get(i)
		fmt.Printf("%7d   %-5v %-6v %-7v %x  %v\n", i, view.Occupied, view.IsRunEnd, view.Shifted, view.Remainder, val)
	}
	if skipped > 0 {
		fmt.Printf("          ...\n")
	}
}
