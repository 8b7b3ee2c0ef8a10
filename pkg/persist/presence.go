package persist

import "github.com/bits-and-blooms/bitset"

// presenceBits sizes the in-memory fast-reject index. It is independent
// of any one tree's entry count; collisions only ever cost an extra bolt
// lookup, never a missed entry.
const presenceBits = 1 << 20

// presenceIndex is a fast-reject index over a tree's live fingerprints,
// consulted before every bolt lookup so a cold miss never has to open a
// bolt transaction. It is a bitset rather than a full bloom filter
// because Tree already holds the authoritative value for whatever the
// index lets through; one bit per slot is enough to rule out the
// fingerprints that were never written.
type presenceIndex struct {
	bits *bitset.BitSet
}

func newPresenceIndex() *presenceIndex {
	return &presenceIndex{bits: bitset.New(presenceBits)}
}

func presenceSlot(fingerprint uint64) uint {
	return uint(fingerprint % presenceBits)
}

func (p *presenceIndex) mark(fingerprint uint64) {
	p.bits.Set(presenceSlot(fingerprint))
}

// mayContain reports whether fingerprint could be present. false means
// definitely absent; true means the tree still needs to be consulted.
func (p *presenceIndex) mayContain(fingerprint uint64) bool {
	return p.bits.Test(presenceSlot(fingerprint))
}

func (p *presenceIndex) reset() {
	p.bits.ClearAll()
}
