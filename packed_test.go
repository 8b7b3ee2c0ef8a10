package mappy

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zeebo/pcg"
)

func TestBitPacking(t *testing.T) {
	r := pcg.New(77) // intentionally fixed seed
	for bits := uint(1); bits <= 64; bits++ {
		n := uint64(100)
		p := BitPackedVectorAllocate(bits, n).(*packed)
		for j := 0; j < 100; j++ {
			for i := uint64(0); i < n; i++ {
				v := r.Uint64() & ^p.forbiddenMask
				p.Set(i, v)
				if !assert.Equal(t, v, p.Get(i), "failed to write %s into %d", strconv.FormatUint(v, 2), i) {
					for i, x := range p.space {
						fmt.Printf("[%2d] %d) %s\n", j, i, strconv.FormatUint(x, 2))
					}
					return
				}
			}
		}
	}
}

func TestUnpackedVector(t *testing.T) {
	n := uint64(50)
	v := UnpackedVectorAllocate(64, n)
	for i := uint64(0); i < n; i++ {
		v.Set(i, i*7+1)
	}
	for i := uint64(0); i < n; i++ {
		assert.Equal(t, i*7+1, v.Get(i))
	}
	old := v.Swap(3, 999)
	assert.Equal(t, uint64(3*7+1), old)
	assert.Equal(t, uint64(999), v.Get(3))
}
