// Package cache models one level of a set-associative cache with LRU
// replacement. Tag, valid and dirty state is kept in an Akita cache
// directory; recency is tracked as an explicit rank per block.
package cache

import (
	"fmt"
	"log"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sarchlab/akita/v4/sim"
)

// Statistics holds demand-access and replacement counters of one level.
type Statistics struct {
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	Evictions      uint64 `json:"evictions"`
	DirtyEvictions uint64 `json:"dirty_evictions"`
}

// Accesses returns the number of demand lookups the level served.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns the fraction of demand lookups that hit, or 0 before the
// first lookup.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses())
}

// Cache is one level of the hierarchy.
type Cache struct {
	*sim.HookableBase

	name     string
	config   Config
	geometry Geometry

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// recency[set][way]; each row is a permutation of 0..Associativity-1
	recency [][]int

	stats Statistics
}

// New creates a cache with the given configuration. Construction is
// all-or-nothing: on error no cache is returned.
func New(name string, config Config) (*Cache, error) {
	geometry, err := config.Geometry()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	numSets := geometry.NumSets()

	c := &Cache{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		config:       config,
		geometry:     geometry,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
	c.resetRecency()

	return c, nil
}

// Name returns the name the cache was created with.
func (c *Cache) Name() string {
	return c.name
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Geometry returns the address layout of the cache.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Policy returns the write policy of the cache.
func (c *Cache) Policy() Policy {
	return c.config.Policy
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Lookup performs a demand lookup. A hit promotes the line to most recently
// used; a miss leaves the set untouched.
func (c *Cache) Lookup(addr uint32) bool {
	block := c.find(addr)
	if block == nil {
		c.stats.Misses++
		c.Notify(HookPosMiss, addr, nil)

		return false
	}

	c.stats.Hits++
	c.promote(block)
	c.Notify(HookPosHit, addr, nil)

	return true
}

// Contains reports whether addr is resident without touching counters or
// recency.
func (c *Cache) Contains(addr uint32) bool {
	return c.find(addr) != nil
}

// Insert places the line holding addr into the least recently used block of
// its set and promotes it. The new line is clean; the replaced line, if any,
// is returned so that the owner of the level chain can write it back.
func (c *Cache) Insert(addr uint32) Victim {
	fields := c.geometry.Decode(addr)
	block := c.lruBlock(fields.Index)

	var victim Victim
	if block.IsValid {
		victim = Victim{
			Valid: true,
			Dirty: block.IsDirty,
			Addr:  c.geometry.Address(uint32(block.Tag), fields.Index),
		}

		c.stats.Evictions++
		if victim.Dirty {
			c.stats.DirtyEvictions++
		}

		c.Notify(HookPosEvict, victim.Addr, victim)
	}

	block.Tag = uint64(fields.Tag)
	block.IsValid = true
	block.IsDirty = false
	c.promote(block)

	return victim
}

// Fill makes addr resident without counting a demand access. A resident line
// is promoted; otherwise the line is inserted and the replaced line
// returned.
func (c *Cache) Fill(addr uint32) (bool, Victim) {
	if block := c.find(addr); block != nil {
		c.promote(block)
		return true, Victim{}
	}

	return false, c.Insert(addr)
}

// SetDirty sets the dirty flag of the resident line holding addr. Recency is
// not changed. The line must be resident.
func (c *Cache) SetDirty(addr uint32, dirty bool) {
	block := c.find(addr)
	if block == nil {
		log.Panicf("cache %s: set dirty on non-resident address 0x%08x",
			c.name, addr)
	}

	block.IsDirty = dirty
}

// IsDirty reports whether addr is resident and dirty.
func (c *Cache) IsDirty(addr uint32) bool {
	block := c.find(addr)
	return block != nil && block.IsDirty
}

// Invalidate drops the line holding addr without writing it back and makes
// its block the least recently used of the set. It reports whether the line
// was resident.
func (c *Cache) Invalidate(addr uint32) bool {
	block := c.find(addr)
	if block == nil {
		return false
	}

	block.IsValid = false
	block.IsDirty = false
	c.demote(block)

	return true
}

// Reset invalidates all cache lines without writeback and clears the
// statistics.
func (c *Cache) Reset() {
	c.mustBeLive()
	c.directory.Reset()
	c.resetRecency()
	c.stats = Statistics{}
}

// Release drops the block storage. The cache must not be used afterward.
func (c *Cache) Release() {
	c.directory = nil
	c.recency = nil
}

// Released reports whether Release has been called.
func (c *Cache) Released() bool {
	return c.directory == nil
}

// Verify checks the structural invariants of every set: recency ranks form a
// permutation, valid tags are unique, invalid blocks are clean and a
// write-through cache holds no dirty line.
func (c *Cache) Verify() error {
	for index, set := range c.sets() {
		seen := make([]bool, c.config.Associativity)
		tags := make(map[uint64]int, len(set.Blocks))

		for _, block := range set.Blocks {
			rank := c.recency[index][block.WayID]
			if rank < 0 || rank >= len(seen) || seen[rank] {
				return fmt.Errorf("cache %s: set %d: ranks %v are not a permutation",
					c.name, index, c.recency[index])
			}
			seen[rank] = true

			if !block.IsValid {
				if block.IsDirty {
					return fmt.Errorf("cache %s: set %d way %d: invalid block is dirty",
						c.name, index, block.WayID)
				}

				continue
			}

			if way, dup := tags[block.Tag]; dup {
				return fmt.Errorf("cache %s: set %d: tag 0x%x held by ways %d and %d",
					c.name, index, block.Tag, way, block.WayID)
			}
			tags[block.Tag] = block.WayID

			if block.IsDirty && c.config.Policy == WriteThrough {
				return fmt.Errorf("cache %s: set %d way %d: dirty block in write-through cache",
					c.name, index, block.WayID)
			}
		}
	}

	return nil
}

func (c *Cache) mustBeLive() {
	if c.directory == nil {
		log.Panicf("cache %s: used after release", c.name)
	}
}

func (c *Cache) sets() []akitacache.Set {
	c.mustBeLive()
	return c.directory.GetSets()
}

func (c *Cache) set(index uint32) *akitacache.Set {
	sets := c.sets()
	return &sets[index]
}

// find scans only the set addr maps to.
func (c *Cache) find(addr uint32) *akitacache.Block {
	fields := c.geometry.Decode(addr)

	for _, block := range c.set(fields.Index).Blocks {
		if block.IsValid && block.Tag == uint64(fields.Tag) {
			return block
		}
	}

	return nil
}

func (c *Cache) lruBlock(index uint32) *akitacache.Block {
	lru := c.config.Associativity - 1
	ranks := c.recency[index]

	for _, block := range c.set(index).Blocks {
		if ranks[block.WayID] == lru {
			return block
		}
	}

	log.Panicf("cache %s: set %d has no least recently used block, ranks %v",
		c.name, index, ranks)

	return nil
}

// promote makes block rank 0. Only blocks more recent than it move down one
// rank, so the ranks stay a permutation.
func (c *Cache) promote(block *akitacache.Block) {
	ranks := c.recency[block.SetID]
	old := ranks[block.WayID]

	for way, rank := range ranks {
		if rank < old {
			ranks[way] = rank + 1
		}
	}

	ranks[block.WayID] = 0
}

// demote makes block the least recently used of its set.
func (c *Cache) demote(block *akitacache.Block) {
	ranks := c.recency[block.SetID]
	old := ranks[block.WayID]

	for way, rank := range ranks {
		if rank > old {
			ranks[way] = rank - 1
		}
	}

	ranks[block.WayID] = len(ranks) - 1
}

func (c *Cache) resetRecency() {
	numSets := c.geometry.NumSets()
	ways := c.config.Associativity

	// One backing array keeps the table a single allocation.
	backing := make([]int, numSets*ways)
	c.recency = make([][]int, numSets)

	for set := range c.recency {
		row := backing[set*ways : (set+1)*ways : (set+1)*ways]
		for way := range row {
			row[way] = way
		}
		c.recency[set] = row
	}
}
