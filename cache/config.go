package cache

import "fmt"

// MaxBlocks bounds the number of blocks a single cache may allocate.
const MaxBlocks = 1 << 24

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// Policy is the write policy of the level
	Policy Policy `json:"policy"`
}

// DefaultL1IConfig returns the default L1 instruction cache: 32KB, 4-way,
// 64B lines, write-back.
func DefaultL1IConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 4,
		BlockSize:     64,
		Policy:        WriteBack,
	}
}

// DefaultL1DConfig returns the default L1 data cache: 32KB, 8-way, 64B
// lines, write-back.
func DefaultL1DConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 8,
		BlockSize:     64,
		Policy:        WriteBack,
	}
}

// DefaultL2Config returns the default unified L2 cache: 256KB, 8-way, 64B
// lines, write-back.
func DefaultL2Config() Config {
	return Config{
		Size:          256 * 1024,
		Associativity: 8,
		BlockSize:     64,
		Policy:        WriteBack,
	}
}

// NumSets returns Size / (BlockSize * Associativity), or 0 when the
// configuration cannot be divided into sets.
func (c Config) NumSets() int {
	if c.BlockSize <= 0 || c.Associativity <= 0 {
		return 0
	}

	return c.Size / c.BlockSize / c.Associativity
}

// NumBlocks returns the total number of blocks in the cache.
func (c Config) NumBlocks() int {
	return c.NumSets() * c.Associativity
}

// Validate checks that the configuration yields whole bit-fields and a
// bounded amount of block storage.
func (c Config) Validate() error {
	_, err := c.Geometry()
	return err
}

// Geometry validates the configuration and derives its address layout.
func (c Config) Geometry() (Geometry, error) {
	if !c.Policy.Valid() {
		return Geometry{}, fmt.Errorf(
			"%w: unknown write policy %d", ErrConfiguration, int(c.Policy))
	}

	if c.Associativity <= 0 {
		return Geometry{}, fmt.Errorf(
			"%w: associativity must be > 0, got %d",
			ErrConfiguration, c.Associativity)
	}

	if c.Size <= 0 {
		return Geometry{}, fmt.Errorf(
			"%w: size must be > 0, got %d", ErrConfiguration, c.Size)
	}

	if !isPowerOfTwo(c.BlockSize) {
		return Geometry{}, fmt.Errorf(
			"%w: block size %d is not a power of two",
			ErrConfiguration, c.BlockSize)
	}

	if c.Size%c.BlockSize != 0 || (c.Size/c.BlockSize)%c.Associativity != 0 {
		return Geometry{}, fmt.Errorf(
			"%w: size %d is not a multiple of %d-byte blocks times %d ways",
			ErrConfiguration, c.Size, c.BlockSize, c.Associativity)
	}

	geometry, err := NewGeometry(c.BlockSize, c.NumSets())
	if err != nil {
		return Geometry{}, err
	}

	if c.Size/c.BlockSize > MaxBlocks {
		return Geometry{}, fmt.Errorf(
			"%w: %d blocks requested, at most %d supported",
			ErrAllocation, c.Size/c.BlockSize, MaxBlocks)
	}

	return geometry, nil
}
