package cache

// BlockState is a read-only snapshot of one block.
type BlockState struct {
	Way   int
	Valid bool
	Tag   uint32
	Dirty bool
	// Recency is 0 for the most recently used block of the set and
	// Associativity-1 for the least recently used one.
	Recency int
}

// Victim describes the line a replacement pushed out of a set.
type Victim struct {
	// Valid is false when the replaced block held nothing.
	Valid bool
	Dirty bool
	// Addr is the block-aligned address the line was cached under.
	Addr uint32
}

// Set returns a snapshot of the blocks of one set, in way order.
func (c *Cache) Set(index uint32) []BlockState {
	set := c.set(index)
	ranks := c.recency[index]

	states := make([]BlockState, 0, len(set.Blocks))
	for _, block := range set.Blocks {
		states = append(states, BlockState{
			Way:     block.WayID,
			Valid:   block.IsValid,
			Tag:     uint32(block.Tag),
			Dirty:   block.IsDirty,
			Recency: ranks[block.WayID],
		})
	}

	return states
}

// ResidentBlocks returns the block-aligned addresses of every valid line.
func (c *Cache) ResidentBlocks() []uint32 {
	return c.collect(func(dirty bool) bool { return true })
}

// DirtyBlocks returns the block-aligned addresses of every dirty line.
func (c *Cache) DirtyBlocks() []uint32 {
	return c.collect(func(dirty bool) bool { return dirty })
}

func (c *Cache) collect(keep func(dirty bool) bool) []uint32 {
	var addrs []uint32

	for index, set := range c.sets() {
		for _, block := range set.Blocks {
			if block.IsValid && keep(block.IsDirty) {
				addrs = append(addrs,
					c.geometry.Address(uint32(block.Tag), uint32(index)))
			}
		}
	}

	return addrs
}
