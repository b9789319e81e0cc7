package hierarchy

import (
	"github.com/sarchlab/cachesim/cache"
)

// applyWritePolicy runs after addr was written into level, which must hold
// the line.
func (h *Hierarchy) applyWritePolicy(level int, addr uint32) {
	c := h.levels[level]

	switch c.Policy() {
	case cache.WriteBack:
		c.SetDirty(addr, true)
	case cache.WriteThrough:
		h.writeThrough(level, addr)
	}
}

// writeThrough forwards a write to the next level. A last level has nowhere
// to forward to.
func (h *Hierarchy) writeThrough(from int, addr uint32) {
	next := h.next[from]
	if next == noNext {
		return
	}

	h.propagation[from].writeThroughs++
	h.levels[from].Notify(cache.HookPosWriteThrough, addr, nil)
	h.store(next, addr)
}

// writeBack moves a dirty line out of from. The last level drops it since
// the backing store is not modeled.
func (h *Hierarchy) writeBack(from int, addr uint32) {
	next := h.next[from]
	if next == noNext {
		h.propagation[from].dropped++
		h.levels[from].Notify(cache.HookPosDrop, addr, nil)

		return
	}

	h.propagation[from].writeBacks++
	h.levels[from].Notify(cache.HookPosWriteBack, addr, nil)
	h.store(next, addr)
}

// store writes a line arriving from the level above into level. It is not a
// demand access. Recursion only goes down the next table, so its depth is
// bounded by the number of levels.
func (h *Hierarchy) store(level int, addr uint32) {
	c := h.levels[level]
	c.Notify(cache.HookPosStore, addr, nil)

	if hit, victim := c.Fill(addr); !hit && victim.Dirty {
		h.writeBack(level, victim.Addr)
	}

	h.applyWritePolicy(level, addr)
}
