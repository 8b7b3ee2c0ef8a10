package persist

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"
	bolt "github.com/boltdb/bolt"
)

var entriesBucket = []byte("mappy_entries")
var metaBucket = []byte("mappy_meta")
var metaKey = []byte("config")

// Tree wraps a boltdb/bolt database as the "on-disk tree" persistence
// backend named in spec §1. Entries are keyed by the fingerprint's
// big-endian bytes, which keeps BoltDB's ordered-bucket iteration useful
// as a fingerprint-ordered range scan, a side effect of the encoding
// choice rather than a spec requirement.
type Tree struct {
	db       *bolt.DB
	presence *presenceIndex
}

// OpenTree opens (creating if necessary) a BoltDB file at path and warms
// the in-memory presence index from whatever entries already exist.
func OpenTree(path string) (*Tree, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, Class.Wrap(err)
	}
	t := &Tree{db: db, presence: newPresenceIndex()}
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, _ []byte) error {
			t.presence.mark(binary.BigEndian.Uint64(k))
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, Class.Wrap(err)
	}
	return t, nil
}

func fingerprintKey(fp uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], fp)
	return b[:]
}

// Put stores the encoded value for a fingerprint.
func (t *Tree) Put(fingerprint uint64, value []byte) error {
	err := Class.Wrap(t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put(fingerprintKey(fingerprint), value)
	}))
	if err == nil {
		t.presence.mark(fingerprint)
	}
	return err
}

// Get returns the encoded value for a fingerprint, or ok=false if absent.
// A presence-index miss short-circuits before opening a bolt transaction.
func (t *Tree) Get(fingerprint uint64) (value []byte, ok bool, err error) {
	if !t.presence.mayContain(fingerprint) {
		return nil, false, nil
	}
	err = t.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(entriesBucket).Get(fingerprintKey(fingerprint))
		if v != nil {
			ok = true
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, ok, Class.Wrap(err)
}

// Delete removes a fingerprint's entry. The presence index is left as-is
// on a hit — it may now hold a stale bit for a slot shared with another
// fingerprint, which only ever costs an extra bolt lookup, never a false
// negative.
func (t *Tree) Delete(fingerprint uint64) error {
	return Class.Wrap(t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Delete(fingerprintKey(fingerprint))
	}))
}

// Checkpoint replaces the tree's contents with the given snapshot entries
// in a single transaction, used by both Tree.Checkpoint callers and
// Hybrid's periodic checkpointing.
func (t *Tree) Checkpoint(entries func(yield func(fingerprint uint64, value []byte) error) error) error {
	fresh := newPresenceIndex()
	err := Class.Wrap(t.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(entriesBucket); err != nil {
			return err
		}
		nb, err := tx.CreateBucket(entriesBucket)
		if err != nil {
			return err
		}
		return entries(func(fingerprint uint64, value []byte) error {
			fresh.mark(fingerprint)
			return nb.Put(fingerprintKey(fingerprint), value)
		})
	}))
	if err == nil {
		t.presence = fresh
	}
	return err
}

// Each calls cb for every stored (fingerprint, value) pair in ascending
// fingerprint order.
func (t *Tree) Each(cb func(fingerprint uint64, value []byte) error) error {
	return Class.Wrap(t.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, v []byte) error {
			return cb(binary.BigEndian.Uint64(k), v)
		})
	}))
}

// BloomFilter builds a bloom/v3 filter over every fingerprint currently
// checkpointed in the tree, sized off the bucket's own key count. It is
// the fast-reject prefilter Hybrid.Recover seeds an AOF replay with, so a
// stale delete left in the AOF tail from before this checkpoint never
// reaches the replay callback.
func (t *Tree) BloomFilter() (*bloom.BloomFilter, error) {
	var keyN uint64
	err := t.db.View(func(tx *bolt.Tx) error {
		keyN = uint64(tx.Bucket(entriesBucket).Stats().KeyN)
		return nil
	})
	if err != nil {
		return nil, Class.Wrap(err)
	}
	if keyN == 0 {
		keyN = 1
	}
	filter := bloom.NewWithEstimates(uint(keyN), 0.001)
	err = t.Each(func(fingerprint uint64, _ []byte) error {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], fingerprint)
		filter.Add(b[:])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filter, nil
}

// PutMeta stores an opaque, caller-encoded blob of the engine
// reconstruction parameters needed to rebuild an Engine from this tree's
// fingerprint-keyed entries, since those entries carry no keys to re-derive
// the parameters from. (cmd/mappy stores capacity, false-positive rate,
// hasher family and seed, bit-packing and deletion flags.)
func (t *Tree) PutMeta(meta []byte) error {
	return Class.Wrap(t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(metaKey, meta)
	}))
}

// GetMeta returns the stored reconstruction parameters, or ok=false if
// none have been written yet.
func (t *Tree) GetMeta() (meta []byte, ok bool, err error) {
	err = t.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(metaKey)
		if v != nil {
			ok = true
			meta = append([]byte(nil), v...)
		}
		return nil
	})
	return meta, ok, Class.Wrap(err)
}

func (t *Tree) Close() error {
	return Class.Wrap(t.db.Close())
}
