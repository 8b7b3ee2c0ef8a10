package ttlx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserveAndSweepExpiresOverdueKeys(t *testing.T) {
	deleted := map[string]bool{}
	tr := NewTracker(func(key string) bool {
		deleted[key] = true
		return true
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.Observe("a", 10*time.Millisecond)
	tr.Observe("b", time.Hour)

	assert.Equal(t, 2, tr.Len())

	now = now.Add(20 * time.Millisecond)
	count := tr.Sweep()
	assert.Equal(t, 1, count)
	assert.True(t, deleted["a"])
	assert.False(t, deleted["b"])
	assert.Equal(t, 1, tr.Len())
}

func TestObserveRefreshesExistingExpiry(t *testing.T) {
	tr := NewTracker(func(key string) bool { return true })
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.Observe("a", 10*time.Millisecond)
	now = now.Add(5 * time.Millisecond)
	tr.Observe("a", time.Hour)

	now = now.Add(10 * time.Millisecond)
	count := tr.Sweep()
	assert.Equal(t, 0, count, "refreshed key should not expire at its original deadline")
}

func TestForgetRemovesWithoutDeleting(t *testing.T) {
	deleted := false
	tr := NewTracker(func(key string) bool {
		deleted = true
		return true
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.Observe("a", 10*time.Millisecond)
	tr.Forget("a")

	now = now.Add(time.Hour)
	tr.Sweep()
	assert.False(t, deleted)
	assert.Equal(t, 0, tr.Len())
}

func TestZeroTTLIsNotTracked(t *testing.T) {
	tr := NewTracker(func(key string) bool { return true })
	tr.Observe("a", 0)
	assert.Equal(t, 0, tr.Len())
}
