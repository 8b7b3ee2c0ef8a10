package mappy

import (
	"fmt"
	"io"
)

type unpacked []uint64

var _ Vector = (*unpacked)(nil)

// UnpackedVectorAllocate allocates non-bitpacked storage with a portable
// serialization format (i.e. between architectures). One uint64 per slot,
// regardless of how few bits it actually needs — simpler and faster than
// packed, at roughly 64/bits times the memory.
func UnpackedVectorAllocate(bits uint, size uint64) Vector {
	if bits > bitsPerWord {
		panic(fmt.Sprintf("bit size of %d is greater than word size of %d, not supported",
			bits, bitsPerWord))
	}
	arr := make(unpacked, size)
	return &arr
}

func (v *unpacked) Set(ix uint64, val uint64) {
	(*v)[ix] = val
}

func (v *unpacked) Swap(ix uint64, val uint64) (oldval uint64) {
	(*v)[ix], oldval = val, (*v)[ix]
	return
}

func (v *unpacked) Get(ix uint64) (val uint64) {
	return (*v)[ix]
}

// unpacked format on disk is:
// 64 bit len
// len x 64 bit unsigned integers
func (v unpacked) WriteTo(w io.Writer) (n int64, err error) {
	return writeUintSlice(w, v)
}

func (v *unpacked) ReadFrom(r io.Reader) (n int64, err error) {
	*v, n, err = readUintSlice(r)
	return
}
