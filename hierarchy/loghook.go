package hierarchy

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cachesim/cache"
)

// LogHook prints one line per access and per cache event.
type LogHook struct {
	sim.LogHookBase
}

// NewLogHook creates a LogHook that writes to logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger

	return h
}

// Func writes the event of ctx to the logger.
func (h *LogHook) Func(ctx sim.HookCtx) {
	switch item := ctx.Item.(type) {
	case AccessEvent:
		h.Printf("memory: %s 0x%08x", item.Kind, item.Addr)
	case cache.Event:
		h.Printf("  %s: %s 0x%08x", item.Level, ctx.Pos.Name, item.Addr)
	}
}
