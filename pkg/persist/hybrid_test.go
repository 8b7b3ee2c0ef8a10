package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridChecksPointsEveryNRecords(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHybrid(filepath.Join(dir, "log.aof"), filepath.Join(dir, "tree.db"), 2, nil)
	require.NoError(t, err)
	defer h.Close()

	noEntries := func(yield func(fingerprint uint64, value []byte) error) error { return nil }

	require.NoError(t, h.Append(OpInsert, 1, []byte("k1"), []byte("v1"), true, noEntries))
	assert.Equal(t, 1, h.sinceCheck)

	require.NoError(t, h.Append(OpInsert, 2, []byte("k2"), []byte("v2"), true, noEntries))
	assert.Equal(t, 0, h.sinceCheck, "checkpoint should reset the counter")
}

func TestHybridRecoverSkipsStaleDeletes(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHybrid(filepath.Join(dir, "log.aof"), filepath.Join(dir, "tree.db"), 1000, nil)
	require.NoError(t, err)
	defer h.Close()

	noEntries := func(yield func(fingerprint uint64, value []byte) error) error { return nil }

	// simulate a prior checkpoint that only ever saw fingerprint 2.
	require.NoError(t, h.tree.Checkpoint(func(yield func(fingerprint uint64, value []byte) error) error {
		return yield(2, []byte("v2"))
	}))

	require.NoError(t, h.Append(OpInsert, 1, []byte("k1"), []byte("v1"), true, noEntries))
	require.NoError(t, h.Append(OpDelete, 99, []byte("k99"), nil, false, noEntries))
	require.NoError(t, h.Append(OpDelete, 1, []byte("k1"), nil, false, noEntries))
	require.NoError(t, h.aof.Sync())

	type applied struct {
		op  Op
		key string
	}
	var got []applied
	count, err := h.Recover(func(op Op, keyBytes []byte, value []byte, hasValue bool) error {
		got = append(got, applied{op: op, key: string(keyBytes)})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count, "the stale delete of fingerprint 99 should be skipped")
	assert.Equal(t, []applied{{op: OpInsert, key: "k1"}, {op: OpDelete, key: "k1"}}, got)
}
