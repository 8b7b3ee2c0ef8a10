package mappy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 0
	assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.FalsePositiveRate = 0
	assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.FalsePositiveRate = 1.5
	assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxLoadFactor = 1.5
	assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)

	assert.NoError(t, DefaultConfig().validate())
}

func TestConfigQBitsRBitsBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 1
	assert.GreaterOrEqual(t, cfg.qBits(), uint(minQBits))

	cfg.FalsePositiveRate = 0.5
	assert.GreaterOrEqual(t, cfg.rBits(), uint(minRBits))

	cfg.FalsePositiveRate = 1e-6
	assert.LessOrEqual(t, cfg.rBits(), uint(maxRBits))
}

func TestConfigBucketCountPowerOfTwo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 1000
	count := cfg.BucketCount()
	assert.Equal(t, count&(count-1), uint64(0))
	assert.GreaterOrEqual(t, count, cfg.Capacity)
}
