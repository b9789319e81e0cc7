// Package hierarchy composes the L1 instruction, L1 data and unified L2
// caches and routes fetches, reads and writes through them.
//
// The levels live in an ordered slice. Each level names the index of its
// next level, which must be further down the slice, so write-back
// propagation always terminates.
package hierarchy

import (
	"fmt"
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cachesim/cache"
)

// Level identifies a cache inside a Hierarchy.
type Level int

// The levels of the hierarchy, in propagation order.
const (
	L1Instruction Level = iota
	L1Data
	L2
	numLevels
)

// String returns the name reports use for the level.
func (l Level) String() string {
	switch l {
	case L1Instruction:
		return "L1I"
	case L1Data:
		return "L1D"
	case L2:
		return "L2"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

const noNext = -1

// topology maps each level to the level its misses and write-backs go to.
var topology = [numLevels]int{
	L1Instruction: int(L2),
	L1Data:        int(L2),
	L2:            noNext,
}

// propagation counts lines that a level pushed toward the next one.
type propagation struct {
	writeBacks    uint64
	writeThroughs uint64
	dropped       uint64
}

// Hierarchy owns every cache level and the access counter. It is not safe
// for concurrent use.
type Hierarchy struct {
	*sim.HookableBase

	levels      []*cache.Cache
	next        []int
	propagation []propagation

	accesses uint64
	finished bool
	report   Report
}

// Option configures a Hierarchy after its levels are built.
type Option func(h *Hierarchy)

// WithHook registers hook on the hierarchy and on every level.
func WithHook(hook sim.Hook) Option {
	return func(h *Hierarchy) {
		h.AcceptHook(hook)
		for _, c := range h.levels {
			c.AcceptHook(hook)
		}
	}
}

// WithLevelHook registers hook on a single level.
func WithLevelHook(level Level, hook sim.Hook) Option {
	return func(h *Hierarchy) {
		h.levels[level].AcceptHook(hook)
	}
}

// New builds the three-level hierarchy. On error no hierarchy is returned.
func New(config Config, opts ...Option) (*Hierarchy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	configs := config.levels()
	levels := make([]*cache.Cache, 0, len(configs))

	for _, lc := range configs {
		c, err := cache.New(lc.name, lc.config)
		if err != nil {
			return nil, err
		}

		levels = append(levels, c)
	}

	h := &Hierarchy{
		HookableBase: sim.NewHookableBase(),
		levels:       levels,
		next:         topology[:],
		propagation:  make([]propagation, len(levels)),
	}

	if err := h.checkTopology(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// checkTopology ensures that every next level lies strictly below its
// source, which bounds propagation depth by the number of levels.
func (h *Hierarchy) checkTopology() error {
	if len(h.next) != len(h.levels) {
		return fmt.Errorf("%w: %d levels but %d next-level links",
			cache.ErrConfiguration, len(h.levels), len(h.next))
	}

	for level, next := range h.next {
		if next == noNext {
			continue
		}

		if next <= level || next >= len(h.levels) {
			return fmt.Errorf("%w: %s cannot forward to level %d",
				cache.ErrConfiguration, Level(level), next)
		}
	}

	return nil
}

// Cache returns the cache serving level.
func (h *Hierarchy) Cache(level Level) *cache.Cache {
	h.mustBeLive()
	return h.levels[level]
}

// Accesses returns the number of Fetch, Read and Write calls so far.
func (h *Hierarchy) Accesses() uint64 {
	return h.accesses
}

// Verify checks the invariants of every level.
func (h *Hierarchy) Verify() error {
	h.mustBeLive()

	for _, c := range h.levels {
		if err := c.Verify(); err != nil {
			return err
		}
	}

	return nil
}

// ResetStats clears the access counter and the statistics of every level.
func (h *Hierarchy) ResetStats() {
	h.mustBeLive()

	h.accesses = 0
	for i, c := range h.levels {
		c.ResetStats()
		h.propagation[i] = propagation{}
	}
}

// Stats returns a report of the statistics gathered so far.
func (h *Hierarchy) Stats() Report {
	if h.finished {
		return h.report
	}

	report := Report{
		Levels:        make([]LevelStats, 0, len(h.levels)),
		TotalAccesses: h.accesses,
	}

	for i, c := range h.levels {
		report.Levels = append(report.Levels, LevelStats{
			Name:          c.Name(),
			Statistics:    c.Stats(),
			WriteBacks:    h.propagation[i].writeBacks,
			WriteThroughs: h.propagation[i].writeThroughs,
			Dropped:       h.propagation[i].dropped,
		})
	}

	return report
}

// Finish reports the final statistics and releases all block storage. The
// hierarchy must not be accessed afterward; calling Finish again returns the
// same report.
func (h *Hierarchy) Finish() Report {
	if h.finished {
		return h.report
	}

	h.report = h.Stats()
	for _, c := range h.levels {
		c.Release()
	}

	h.levels = nil
	h.finished = true

	return h.report
}

// Finished reports whether Finish has been called.
func (h *Hierarchy) Finished() bool {
	return h.finished
}

func (h *Hierarchy) mustBeLive() {
	if h.finished {
		log.Panic("hierarchy: used after Finish")
	}
}
