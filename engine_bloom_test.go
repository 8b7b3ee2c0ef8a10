package mappy

import (
	"fmt"
	"testing"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/stretchr/testify/assert"
)

// TestMeasuredFalsePositiveRateTracksBloomBaseline cross-checks the
// engine's empirical false-positive rate against a textbook bloom/v3
// filter built for the same target epsilon, matching
// facebookincubator-go-qfext's qf_test.go BenchmarkBloomFilter
// comparison. Both structures are one-sided-error approximate sets, so
// neither should wildly outperform or underperform the other once
// loaded to the same count.
func TestMeasuredFalsePositiveRateTracksBloomBaseline(t *testing.T) {
	const n = 2000
	const eps = 0.01

	e := newCounterEngine(t, 4096, eps)
	bf := bloom.NewWithEstimates(uint(n), eps)

	inserted := make([]string, n)
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("member-%d", i)
		inserted[i] = k
		assert.NoError(t, e.Insert(k, 1))
		bf.AddString(k)
	}

	const trials = 5000
	engineFalsePositives, bloomFalsePositives := 0, 0
	for i := 0; i < trials; i++ {
		probe := fmt.Sprintf("absent-%d", i)
		if e.Contains(probe) {
			engineFalsePositives++
		}
		if bf.TestString(probe) {
			bloomFalsePositives++
		}
	}

	engineRate := float64(engineFalsePositives) / float64(trials)
	bloomRate := float64(bloomFalsePositives) / float64(trials)

	// a generous multiple of the configured epsilon on both sides, since
	// this is a statistical property over a single random draw rather
	// than an exact bound.
	assert.LessOrEqual(t, engineRate, eps*3)
	assert.LessOrEqual(t, bloomRate, eps*3)

	for _, k := range inserted[:50] {
		assert.True(t, e.Contains(k))
		assert.True(t, bf.TestString(k))
	}
}

func BenchmarkBloomFilterBaseline(b *testing.B) {
	keys := make([]string, 2000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	bf := bloom.NewWithEstimates(uint(len(keys)), 0.0001)
	for _, k := range keys {
		bf.AddString(k)
	}
	numKeys := len(keys)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		bf.TestString(keys[n%numKeys])
	}
}
