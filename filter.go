package mappy

// InsertResult reports whether a quotient-filter insert created a new slot
// or found the fingerprint already present there.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyPresent
)

// DeleteResult reports whether a quotient-filter delete removed the last
// occurrence of a fingerprint or merely decremented its multiset count.
type DeleteResult int

const (
	Removed DeleteResult = iota
	NotPresent
)

// quotientFilter is C2: it stores occupied fingerprints in a slot array
// with run/cluster encoding, supporting insert, lookup, delete, iteration,
// and resize. Grounded on facebookincubator/go-qfext's qf.go insert/lookup/
// findStart/double, generalized with a multiset counter (for delete, which
// the teacher never implements) and a run-end-derived public view.
//
// Every method here assumes the caller already holds whatever lock
// protects concurrent access; quotientFilter itself is not safe for
// concurrent use. The engine (engine.go) owns the lock.
type quotientFilter struct {
	vec          Vector
	allocFn      VectorAllocateFn
	qBits, rBits uint
	rMask        uint64
	size         uint64
	entries      uint64
	counter      map[uint64]uint32
	deletable    bool
}

func newQuotientFilter(qBits, rBits uint, allocFn VectorAllocateFn, deletable bool) *quotientFilter {
	f := &quotientFilter{
		allocFn:   allocFn,
		qBits:     qBits,
		rBits:     rBits,
		rMask:     (uint64(1) << rBits) - 1,
		size:      uint64(1) << qBits,
		deletable: deletable,
	}
	f.vec = allocFn(slotMetadataBits+rBits, f.size)
	if deletable {
		f.counter = make(map[uint64]uint32)
	}
	return f
}

func (f *quotientFilter) read(slot uint64) slotData {
	return slotData(f.vec.Get(slot))
}

func (f *quotientFilter) write(slot uint64, sd slotData) {
	f.vec.Set(slot, uint64(sd))
}

func (f *quotientFilter) combine(q, r uint64) uint64 {
	return (q << f.rBits) | r
}

func (f *quotientFilter) split(fingerprint uint64) (q, r uint64) {
	return fingerprint >> f.rBits, fingerprint & f.rMask
}

// Insert stores fingerprint (q, r) in the filter. Returns Inserted and the
// slot index on a fresh fingerprint, AlreadyPresent and the slot index if
// it was already there. Returns ErrCapacityExceeded only as a hard
// backstop when the filter has no empty slot left to absorb the insert;
// the engine is expected to resize well before this is reached.
func (f *quotientFilter) Insert(q, r uint64) (InsertResult, uint64, error) {
	if f.entries >= f.size {
		return 0, 0, ErrCapacityExceeded
	}

	if f.deletable {
		fp := f.combine(q, r)
		if f.counter[fp] > 0 {
			f.counter[fp]++
			// still need the slot location for the caller (value merge)
			_, slot := f.lookupSlot(q, r)
			return AlreadyPresent, slot, nil
		}
	}

	result, slot := f.insertByHash(q, r)
	if f.deletable {
		f.counter[f.combine(q, r)]++
	}
	return result, slot, nil
}

func (f *quotientFilter) insertByHash(dq, dr uint64) (InsertResult, uint64) {
	sd := f.read(dq)

	if sd.empty() {
		f.entries++
		sd.setOccupied(true)
		sd.setRemainder(dr)
		sd.setContinuation(false)
		f.write(dq, sd)
		return Inserted, dq
	}

	extendingRun := sd.occupied()
	if !extendingRun {
		sd.setOccupied(true)
		f.write(dq, sd)
	}

	runStart := dq
	if sd.shifted() {
		runStart = f.findRunStart(dq)
	}

	slot := runStart
	if extendingRun {
		sd = f.read(slot)
		for {
			if sd.empty() || sd.remainder() >= dr {
				break
			}
			right(&slot, f.size)
			sd = f.read(slot)
			if !sd.continuation() {
				break
			}
		}
	}

	if !sd.empty() && dr == sd.remainder() {
		return AlreadyPresent, slot
	}
	f.entries++

	shifted := slot != dq
	continuation := slot != runStart

	for {
		var newSd slotData
		newSd.setShifted(shifted)
		newSd.setContinuation(continuation)
		old := f.read(slot)
		newSd.setOccupied(old.occupied())
		newSd.setRemainder(dr)
		f.write(slot, newSd)
		if old.empty() {
			break
		}
		if (slot == runStart && extendingRun) || old.continuation() {
			continuation = true
		} else {
			continuation = false
		}
		dr = old.remainder()
		right(&slot, f.size)
		shifted = true
	}
	return Inserted, slot
}

// findRunStart walks back to the start of the cluster containing dq, then
// forward counting run-ends until it reaches the run whose canonical
// quotient is dq (spec §4.2 step 3).
func (f *quotientFilter) findRunStart(dq uint64) uint64 {
	runs, complete := 1, 0
	for i := dq; ; left(&i, f.size) {
		sd := f.read(i)
		if !sd.continuation() {
			complete++
		}
		if !sd.shifted() {
			break
		} else if sd.occupied() {
			runs++
		}
	}
	for runs > complete {
		right(&dq, f.size)
		if !f.read(dq).continuation() {
			complete++
		}
	}
	return dq
}

// Lookup reports whether fingerprint (q, r) is present and, if so, its
// slot index.
func (f *quotientFilter) Lookup(q, r uint64) (ok bool, slot uint64) {
	return f.lookupSlot(q, r)
}

func (f *quotientFilter) lookupSlot(dq, dr uint64) (bool, uint64) {
	sd := f.read(dq)
	if !sd.occupied() {
		return false, 0
	}
	slot := dq
	if sd.shifted() {
		slot = f.findRunStart(dq)
		sd = f.read(slot)
	}
	for {
		if sd.remainder() == dr {
			return true, slot
		}
		if sd.remainder() > dr {
			break
		}
		right(&slot, f.size)
		sd = f.read(slot)
		if !sd.continuation() {
			break
		}
	}
	return false, 0
}

// FindSlot is the C2→C3 bridge: it returns the actual slot index (after
// any shifting) where fingerprint (q, r) currently resides.
func (f *quotientFilter) FindSlot(q, r uint64) (uint64, bool) {
	ok, slot := f.lookupSlot(q, r)
	return slot, ok
}

// Delete decrements the multiset counter for fingerprint (q, r). If the
// count reaches zero, the run is mechanically shifted left (the reverse of
// insertByHash's rightward shift) and the slot released — the returned
// physicallyRemoved flag tells the caller (the engine) whether to clear the
// corresponding value-table entry, per spec §4.3 ("on delete resulting in
// slot removal, clear to None"). Returns NotPresent without mutating
// anything if the fingerprint is absent or deletion is disabled.
func (f *quotientFilter) Delete(q, r uint64) (result DeleteResult, slot uint64, physicallyRemoved bool) {
	if !f.deletable {
		return NotPresent, 0, false
	}
	ok, s := f.lookupSlot(q, r)
	if !ok {
		return NotPresent, 0, false
	}
	fp := f.combine(q, r)
	f.counter[fp]--
	if f.counter[fp] > 0 {
		return Removed, s, false
	}
	delete(f.counter, fp)
	f.shiftLeftFrom(s, q)
	f.entries--
	return Removed, s, true
}

// shiftLeftFrom removes the occupant at slot (whose canonical quotient is
// q) by shifting every subsequent slot in its run/cluster one position
// left, clearing is_occupied[q] if that was the run's last member.
func (f *quotientFilter) shiftLeftFrom(slot, q uint64) {
	sd := f.read(slot)
	wasRunStart := !sd.continuation()

	next := slot
	right(&next, f.size)
	nextSd := f.read(next)

	// if nothing continues this run past the vacated slot, the run is
	// now empty (unless we vacated a later member, in which case an
	// earlier member remains and occupied[q] must stay true).
	runEmptied := wasRunStart && !nextSd.continuation()

	cur := slot
	promoting := true
	for nextSd.shifted() {
		moved := nextSd
		moved.setShifted(cur != q)
		moved.setOccupied(f.read(cur).occupied())
		if promoting && wasRunStart {
			// cur is becoming the new run-start; mirror insertByHash's
			// continuation = slot != runStart for the slot it vacates.
			moved.setContinuation(false)
		}
		f.write(cur, moved)
		promoting = false
		cur = next
		right(&next, f.size)
		nextSd = f.read(next)
	}
	// cur is now the last slot of the shift chain; clear it.
	var empty slotData
	empty.setOccupied(f.read(cur).occupied())
	f.write(cur, empty)

	if runEmptied {
		sd := f.read(q)
		sd.setOccupied(false)
		f.write(q, sd)
	}
}

// IsRunEnd derives the spec-shaped run-end bit for a slot: true when the
// next physical slot does not continue this slot's run (including when
// the next slot is empty).
func (f *quotientFilter) IsRunEnd(slot uint64) bool {
	sd := f.read(slot)
	if sd.empty() {
		return false
	}
	next := slot
	right(&next, f.size)
	return !f.read(next).continuation()
}

// View returns the public SlotView for a slot index.
func (f *quotientFilter) View(slot uint64) SlotView {
	sd := f.read(slot)
	return SlotView{
		Index:     slot,
		Occupied:  sd.occupied(),
		IsRunEnd:  f.IsRunEnd(slot),
		Shifted:   sd.shifted(),
		Remainder: sd.remainder(),
		Empty:     sd.empty(),
	}
}

// Iterate calls cb once for each (slot, fingerprint) pair present in the
// filter, in slot order starting from an unshifted slot, matching the
// teacher's eachHashValue traversal.
func (f *quotientFilter) Iterate(cb func(slot uint64, fingerprint uint64)) {
	if f.size == 0 {
		return
	}
	start := uint64(0)
	for f.read(start).shifted() {
		right(&start, f.size)
	}
	end := start
	left(&end, f.size)

	var stack []uint64
	for i := start; ; right(&i, f.size) {
		sd := f.read(i)
		if !sd.continuation() && len(stack) > 0 {
			stack = stack[1:]
		}
		if sd.occupied() {
			stack = append(stack, i)
		}
		if len(stack) > 0 && !sd.empty() {
			fp := (stack[0] << f.rBits) | (sd.remainder() & f.rMask)
			cb(i, fp)
		}
		if i == end {
			break
		}
	}
}

// Resize allocates a fresh filter sized to newQBits and re-inserts every
// current entry under the new width. Grounded on go-qfext's bitsPerWord(64)
// - qBits scheme: a filter's total fingerprint width (qBits+rBits) never
// changes over its lifetime, only the split point between quotient and
// remainder does, so growing qBits shrinks rBits by the same amount and
// Iterate's yielded fingerprint (which always carries the full width)
// re-splits losslessly with no re-hash. A remainder sized independently of
// qBits (e.g. from an epsilon target) cannot do this: the bits a larger
// quotient newly needs were never captured at insert time. On success
// Resize replaces the receiver's internals atomically (from the caller's
// point of view, under whatever lock it holds); on failure the receiver is
// left untouched.
func (f *quotientFilter) Resize(newQBits uint, onMove func(oldSlot, newSlot uint64)) (*quotientFilter, error) {
	if newQBits < minQBits {
		return nil, ErrInvalidCapacity
	}
	width := f.qBits + f.rBits
	if newQBits > width {
		return nil, ErrInvalidCapacity
	}
	newRBits := width - newQBits
	next := newQuotientFilter(newQBits, newRBits, f.allocFn, f.deletable)
	var resizeErr error
	f.Iterate(func(oldSlot uint64, fp uint64) {
		if resizeErr != nil {
			return
		}
		q := fp >> newRBits
		r := fp & next.rMask
		if next.entries >= next.size {
			resizeErr = ErrCollisionLimitExceeded
			return
		}
		_, newSlot := next.insertByHash(q, r)
		if onMove != nil {
			onMove(oldSlot, newSlot)
		}
	})
	if resizeErr != nil {
		return nil, resizeErr
	}
	if f.deletable {
		for fp, n := range f.counter {
			next.counter[fp] = n
		}
	}
	return next, nil
}
