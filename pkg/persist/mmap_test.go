package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSnapshotFileAndMmapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	want := map[uint64]string{1: "a", 2: "bb", 3: "ccc"}

	err := WriteSnapshotFile(path, func(yield func(fingerprint uint64, value []byte) error) error {
		for fp, v := range want {
			if err := yield(fp, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	snap, err := OpenMmapSnapshot(path)
	require.NoError(t, err)
	defer snap.Close()

	got := map[uint64]string{}
	err = snap.Each(func(fingerprint uint64, value []byte) error {
		got[fingerprint] = string(value)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenMmapSnapshotEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, WriteSnapshotFile(path, func(yield func(fingerprint uint64, value []byte) error) error {
		return nil
	}))

	snap, err := OpenMmapSnapshot(path)
	require.NoError(t, err)
	defer snap.Close()

	visited := false
	err = snap.Each(func(fingerprint uint64, value []byte) error {
		visited = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, visited)
}
