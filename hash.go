package mappy

import (
	"crypto/sha256"
	"encoding/binary"

	murmur "github.com/aviddiviner/go-murmur"
)

// keyHashFn derives a 64 bit hash from an arbitrary byte-encoded key, salted
// by a seed. Every family folds the seed into the input deterministically:
// for a fixed seed, the same key always produces the same hash (spec §4.1).
type keyHashFn func(seed uint64, v []byte) uint64

// fingerprintHasher derives a fingerprint from a key and splits it into
// quotient and remainder at a caller-supplied boundary, per spec §3.
//
// The split point (qBits, rBits) is NOT baked in at construction: it is
// passed in on every call, tracking the live filter's current qBits/rBits
// (engine.go's fingerprintOf reads these straight off e.filter). A hasher
// that instead froze its own remainder width at construction would hand
// back zero-padded high quotient bits after a Resize grew qBits, since
// those bits were never computed in the first place — the bug a fixed,
// epsilon-sized remainder produces.
type fingerprintHasher struct {
	fn     keyHashFn
	seed   uint64
	family HasherFamily
}

func newFingerprintHasher(family HasherFamily, seed uint64) fingerprintHasher {
	var fn keyHashFn
	switch family {
	case FamilyFNV:
		fn = fnvSeeded
	case FamilySHA256:
		fn = sha256Seeded
	default:
		fn = murmurSeeded
	}
	return fingerprintHasher{fn: fn, seed: seed, family: family}
}

// fingerprint returns (quotient, remainder) for a key at the given
// (qBits, rBits) split: quotient(f) = f >> rBits, remainder(f) = f &
// ((1<<rBits)-1), where f is the key's hash truncated to qBits+rBits bits.
func (h fingerprintHasher) fingerprint(key []byte, qBits, rBits uint) (q uint64, r uint64) {
	full := h.fn(h.seed, key)
	if width := qBits + rBits; width < 64 {
		full &= (uint64(1) << width) - 1
	}
	rMask := (uint64(1) << rBits) - 1
	q = full >> rBits
	r = full & rMask
	return
}

// fnv64a constants, matching the teacher's hand-rolled fnvhash.
const (
	fnvOffset64 = uint64(14695981039346656037)
	fnvPrime64  = uint64(1099511628211)
)

func fnvSeeded(seed uint64, v []byte) uint64 {
	hv := fnvOffset64 ^ seed
	for _, c := range v {
		hv *= fnvPrime64
		hv ^= uint64(c)
	}
	return hv
}

func murmurSeeded(seed uint64, v []byte) uint64 {
	return murmur.MurmurHash64A(v, uint32(seed))
}

// sha256Seeded truncates a SHA-256 digest of (seed || v) to 64 bits. This
// is the "deterministic cryptographic-style" family; unlike murmur and FNV
// it allocates on the hot path (crypto/sha256's stdlib implementation
// does), which is documented as the cost of choosing it.
func sha256Seeded(seed uint64, v []byte) uint64 {
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], seed)
	h := sha256.New()
	h.Write(seedBytes[:])
	h.Write(v)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}
