package cache

import (
	"fmt"
	"math/bits"
)

// AddressBits is the width of every address the model handles.
const AddressBits = 32

// Fields is an address split into the three bit-fields a cache uses.
type Fields struct {
	Tag    uint32
	Index  uint32
	Offset uint32
}

// Geometry describes how a cache slices a 32-bit address. It is derived once
// from a validated Config and never changes afterward.
type Geometry struct {
	OffsetBits uint
	IndexBits  uint
	TagBits    uint

	offsetMask uint32
	indexMask  uint32
}

// NewGeometry derives the bit-field layout for a cache with numSets sets of
// blockSize-byte blocks. Both values must be powers of two.
func NewGeometry(blockSize, numSets int) (Geometry, error) {
	if !isPowerOfTwo(blockSize) {
		return Geometry{}, fmt.Errorf(
			"%w: block size %d is not a power of two", ErrConfiguration, blockSize)
	}

	if !isPowerOfTwo(numSets) {
		return Geometry{}, fmt.Errorf(
			"%w: set count %d is not a power of two", ErrConfiguration, numSets)
	}

	offsetBits := uint(bits.TrailingZeros(uint(blockSize)))
	indexBits := uint(bits.TrailingZeros(uint(numSets)))
	if offsetBits+indexBits > AddressBits {
		return Geometry{}, fmt.Errorf(
			"%w: %d offset bits and %d index bits exceed a %d-bit address",
			ErrConfiguration, offsetBits, indexBits, AddressBits)
	}

	return Geometry{
		OffsetBits: offsetBits,
		IndexBits:  indexBits,
		TagBits:    AddressBits - indexBits - offsetBits,
		offsetMask: CalculateMask(offsetBits),
		indexMask:  CalculateMask(indexBits),
	}, nil
}

// Decode splits addr into tag, index and offset.
func (g Geometry) Decode(addr uint32) Fields {
	return Fields{
		Tag:    addr >> (g.OffsetBits + g.IndexBits),
		Index:  (addr >> g.OffsetBits) & g.indexMask,
		Offset: addr & g.offsetMask,
	}
}

// Address reassembles the block-aligned address of a line from its tag and
// set index. The offset is always zero because whole blocks move between
// levels.
func (g Geometry) Address(tag, index uint32) uint32 {
	return tag<<(g.OffsetBits+g.IndexBits) | (index&g.indexMask)<<g.OffsetBits
}

// Compose is the exact inverse of Decode.
func (g Geometry) Compose(f Fields) uint32 {
	return g.Address(f.Tag, f.Index) | f.Offset&g.offsetMask
}

// BlockAddress clears the offset bits of addr.
func (g Geometry) BlockAddress(addr uint32) uint32 {
	return addr &^ g.offsetMask
}

// NumSets returns the number of sets the geometry indexes.
func (g Geometry) NumSets() int {
	return 1 << g.IndexBits
}

// CalculateMask generates a mask with the size least significant bits set.
func CalculateMask(size uint) uint32 {
	if size >= AddressBits {
		return ^uint32(0)
	}

	return uint32(1)<<size - 1
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
