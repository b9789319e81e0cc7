package hierarchy

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// AccessKind is the operation a trace record performs.
type AccessKind int

// Kinds of accesses.
const (
	Fetch AccessKind = iota
	Read
	Write
)

// String returns the lower-case name of the access kind.
func (k AccessKind) String() string {
	switch k {
	case Fetch:
		return "fetch"
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// ErrUnknownAccess is returned by Access for an unsupported kind.
var ErrUnknownAccess = errors.New("unknown access kind")

// ErrFinished is returned by Access once Finish has been called.
var ErrFinished = errors.New("hierarchy already finished")

// HookPosAccess triggers on the hierarchy once per Fetch, Read or Write. The
// item is an AccessEvent.
var HookPosAccess = &sim.HookPos{Name: "Access"}

// AccessEvent is the item of HookPosAccess.
type AccessEvent struct {
	Kind AccessKind
	Addr uint32
}

// Access dispatches one trace record.
func (h *Hierarchy) Access(kind AccessKind, addr uint32) error {
	if h.finished {
		return ErrFinished
	}

	switch kind {
	case Fetch:
		h.Fetch(addr)
	case Read:
		h.Read(addr)
	case Write:
		h.Write(addr)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAccess, int(kind))
	}

	return nil
}

// Fetch reads an instruction through the L1 instruction cache.
func (h *Hierarchy) Fetch(addr uint32) {
	h.begin(Fetch, addr)
	h.demandRead(L1Instruction, addr)
}

// Read reads data through the L1 data cache.
func (h *Hierarchy) Read(addr uint32) {
	h.begin(Read, addr)
	h.demandRead(L1Data, addr)
}

// Write writes data into the L1 data cache. Write-allocate: a miss brings
// the line in first. L2 only sees the write through write-through
// forwarding or a later dirty eviction.
func (h *Hierarchy) Write(addr uint32) {
	h.begin(Write, addr)

	level := int(L1Data)
	if !h.levels[level].Lookup(addr) {
		h.install(level, addr)
	}

	h.applyWritePolicy(level, addr)
}

// Flush writes every dirty line down the hierarchy. Lines stay resident and
// become clean; dirty lines of the last level are dropped.
func (h *Hierarchy) Flush() {
	h.mustBeLive()

	for level, c := range h.levels {
		for _, addr := range c.DirtyBlocks() {
			c.SetDirty(addr, false)
			h.writeBack(level, addr)
		}
	}
}

func (h *Hierarchy) begin(kind AccessKind, addr uint32) {
	h.mustBeLive()
	h.accesses++

	h.InvokeHook(sim.HookCtx{
		Domain: h,
		Pos:    HookPosAccess,
		Item:   AccessEvent{Kind: kind, Addr: addr},
	})
}

// demandRead walks down from level until a lookup hits, inserting a clean
// line into every level that missed.
func (h *Hierarchy) demandRead(level Level, addr uint32) {
	for l := int(level); l != noNext; l = h.next[l] {
		if h.levels[l].Lookup(addr) {
			return
		}

		h.install(l, addr)
	}
}

// install inserts addr into level and writes back the line it replaced when
// that line was dirty.
func (h *Hierarchy) install(level int, addr uint32) {
	victim := h.levels[level].Insert(addr)
	if victim.Dirty {
		h.writeBack(level, victim.Addr)
	}
}
