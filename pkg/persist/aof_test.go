package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAOFWriteAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.aof")

	w, err := NewAOFWriter(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(OpInsert, 1, []byte("k1"), []byte("v1"), true))
	require.NoError(t, w.Append(OpInsert, 2, []byte("k2"), nil, false))
	require.NoError(t, w.Append(OpDelete, 1, []byte("k1"), nil, false))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	r, err := NewAOFReader(path, nil)
	require.NoError(t, err)
	defer r.Close()

	type replayed struct {
		op       Op
		key      string
		value    string
		hasValue bool
	}
	var got []replayed
	count, err := r.Replay(func(op Op, keyBytes []byte, value []byte, hasValue bool) error {
		got = append(got, replayed{op: op, key: string(keyBytes), value: string(value), hasValue: hasValue})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, got, 3)
	assert.Equal(t, replayed{op: OpInsert, key: "k1", value: "v1", hasValue: true}, got[0])
	assert.Equal(t, replayed{op: OpInsert, key: "k2", hasValue: false}, got[1])
	assert.Equal(t, replayed{op: OpDelete, key: "k1", hasValue: false}, got[2])
}

func TestAOFSegmentIDsAreUnique(t *testing.T) {
	dir := t.TempDir()
	w1, err := NewAOFWriter(filepath.Join(dir, "a.aof"), nil)
	require.NoError(t, err)
	defer w1.Close()
	w2, err := NewAOFWriter(filepath.Join(dir, "b.aof"), nil)
	require.NoError(t, err)
	defer w2.Close()

	assert.NotEqual(t, w1.SegmentID, w2.SegmentID)
}
