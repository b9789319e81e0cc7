package cache

import "github.com/sarchlab/akita/v4/sim"

// Hook positions invoked by a Cache. Hooks receive an Event as the item.
var (
	// HookPosHit triggers when a demand lookup finds the line resident.
	HookPosHit = &sim.HookPos{Name: "Hit"}
	// HookPosMiss triggers when a demand lookup misses.
	HookPosMiss = &sim.HookPos{Name: "Miss"}
	// HookPosEvict triggers when a valid line is replaced. The detail is
	// the Victim.
	HookPosEvict = &sim.HookPos{Name: "Evict"}
	// HookPosStore triggers when a level receives a line written from the
	// level above it.
	HookPosStore = &sim.HookPos{Name: "Store"}
	// HookPosWriteBack triggers when a dirty line leaves a level for the
	// next one.
	HookPosWriteBack = &sim.HookPos{Name: "WriteBack"}
	// HookPosWriteThrough triggers when a write is forwarded to the next
	// level.
	HookPosWriteThrough = &sim.HookPos{Name: "WriteThrough"}
	// HookPosDrop triggers when a dirty line leaves the last level. There is
	// no backing store behind it.
	HookPosDrop = &sim.HookPos{Name: "Drop"}
)

// Event is the item carried by every hook a Cache invokes.
type Event struct {
	Level string
	Addr  uint32
}

// Notify invokes the hooks registered on the cache.
func (c *Cache) Notify(pos *sim.HookPos, addr uint32, detail interface{}) {
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   Event{Level: c.name, Addr: addr},
		Detail: detail,
	})
}
