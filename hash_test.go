package mappy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasherDeterministicForFixedSeed(t *testing.T) {
	for _, family := range []HasherFamily{FamilyMurmur, FamilyFNV, FamilySHA256} {
		h := newFingerprintHasher(family, 42)
		q1, r1 := h.fingerprint([]byte("hello"), 8, 16)
		q2, r2 := h.fingerprint([]byte("hello"), 8, 16)
		assert.Equal(t, q1, q2, "family %v", family)
		assert.Equal(t, r1, r2, "family %v", family)
	}
}

func TestHasherDifferentSeedsDiffer(t *testing.T) {
	h1 := newFingerprintHasher(FamilyMurmur, 1)
	h2 := newFingerprintHasher(FamilyMurmur, 2)
	q1, r1 := h1.fingerprint([]byte("same-key"), 8, 16)
	q2, r2 := h2.fingerprint([]byte("same-key"), 8, 16)
	assert.False(t, q1 == q2 && r1 == r2)
}

func TestHasherRemainderWithinMask(t *testing.T) {
	h := newFingerprintHasher(FamilyFNV, 0)
	rMask := (uint64(1) << 10) - 1
	for _, key := range [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")} {
		_, r := h.fingerprint(key, 6, 10)
		assert.LessOrEqual(t, r, rMask)
	}
}

// fingerprint must recover the same bits regardless of where the
// quotient/remainder boundary sits, as long as qBits+rBits (the total
// width) is unchanged — this is what lets a Resize shrink rBits as qBits
// grows without losing any bits the filter will need later.
func TestHasherSplitTracksShrinkingRemainder(t *testing.T) {
	h := newFingerprintHasher(FamilyMurmur, 7)
	qWide, rWide := h.fingerprint([]byte("k"), 4, 20)
	full := qWide<<20 | rWide

	qNarrowR, rNarrowR := h.fingerprint([]byte("k"), 6, 18)
	assert.Equal(t, full, qNarrowR<<18|rNarrowR, "recombined fingerprint must stay stable when qBits+rBits is held fixed")
}
