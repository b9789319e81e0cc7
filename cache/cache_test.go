package cache_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cachesim/cache"
)

type recordingHook struct {
	positions []string
	victims   []cache.Victim
}

func (h *recordingHook) Func(ctx sim.HookCtx) {
	h.positions = append(h.positions, ctx.Pos.Name)
	if v, ok := ctx.Detail.(cache.Victim); ok {
		h.victims = append(h.victims, v)
	}
}

func ranks(c *cache.Cache, index uint32) []int {
	var r []int
	for _, b := range c.Set(index) {
		r = append(r, b.Recency)
	}

	return r
}

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// 2KB, 4-way, 64B lines = 8 sets
		var err error
		c, err = cache.New("L1D", cache.Config{
			Size:          2 * 1024,
			Associativity: 4,
			BlockSize:     64,
			Policy:        cache.WriteBack,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Construction", func() {
		It("should start with every block invalid and ranks in way order", func() {
			for index := uint32(0); index < 8; index++ {
				for way, b := range c.Set(index) {
					Expect(b.Valid).To(BeFalse())
					Expect(b.Dirty).To(BeFalse())
					Expect(b.Recency).To(Equal(way))
				}
			}
			Expect(c.Verify()).To(Succeed())
		})

		It("should expose its geometry", func() {
			g := c.Geometry()
			Expect(g.OffsetBits).To(Equal(uint(6)))
			Expect(g.IndexBits).To(Equal(uint(3)))
			Expect(g.TagBits).To(Equal(uint(23)))
		})

		It("should reject a size that does not divide into sets", func() {
			_, err := cache.New("bad", cache.Config{
				Size: 3000, Associativity: 4, BlockSize: 64,
			})
			Expect(err).To(MatchError(cache.ErrConfiguration))
		})

		It("should reject a non-power-of-two set count", func() {
			_, err := cache.New("bad", cache.Config{
				Size: 64 * 4 * 6, Associativity: 4, BlockSize: 64,
			})
			Expect(err).To(MatchError(cache.ErrConfiguration))
		})

		It("should accept a non-power-of-two associativity", func() {
			_, err := cache.New("six-way", cache.Config{
				Size: 64 * 6 * 16, Associativity: 6, BlockSize: 64,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject zero associativity and unknown policies", func() {
			_, err := cache.New("bad", cache.Config{Size: 2048, BlockSize: 64})
			Expect(err).To(MatchError(cache.ErrConfiguration))

			_, err = cache.New("bad", cache.Config{
				Size: 2048, Associativity: 4, BlockSize: 64, Policy: cache.Policy(9),
			})
			Expect(err).To(MatchError(cache.ErrConfiguration))
		})

		It("should refuse to allocate more than MaxBlocks", func() {
			_, err := cache.New("huge", cache.Config{
				Size: 2 * cache.MaxBlocks * 64, Associativity: 2, BlockSize: 64,
			})
			Expect(err).To(MatchError(cache.ErrAllocation))
		})
	})

	Describe("Lookup", func() {
		It("should miss on cold cache without touching recency", func() {
			Expect(c.Lookup(0x1000)).To(BeFalse())
			Expect(ranks(c, 0)).To(Equal([]int{0, 1, 2, 3}))

			stats := c.Stats()
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on an inserted line", func() {
			c.Insert(0x1000)

			Expect(c.Lookup(0x1000)).To(BeTrue())
			Expect(c.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Insert(0x1000)

			Expect(c.Lookup(0x1004)).To(BeTrue())
			Expect(c.Lookup(0x103F)).To(BeTrue())
			Expect(c.Lookup(0x1040)).To(BeFalse())
		})

		It("should promote strictly on hit", func() {
			for _, addr := range []uint32{0x000, 0x200, 0x400, 0x600} {
				c.Insert(addr)
			}
			// 0x600 is MRU, 0x000 is LRU.
			before := c.Set(0)
			var wayOf200 int
			for _, b := range before {
				if b.Tag == c.Geometry().Decode(0x200).Tag {
					wayOf200 = b.Way
					Expect(b.Recency).To(Equal(2))
				}
			}

			Expect(c.Lookup(0x200)).To(BeTrue())

			after := c.Set(0)
			for i, b := range after {
				switch {
				case b.Way == wayOf200:
					Expect(b.Recency).To(Equal(0))
				case before[i].Recency < 2:
					Expect(b.Recency).To(Equal(before[i].Recency + 1))
				default:
					Expect(b.Recency).To(Equal(before[i].Recency))
				}
			}
			Expect(c.Verify()).To(Succeed())
		})
	})

	Describe("Insert", func() {
		It("should evict the least recently used line", func() {
			// Set 0 addresses: 0x000, 0x200, 0x400, 0x600, 0x800
			addrs := []uint32{0x000, 0x200, 0x400, 0x600}
			for _, addr := range addrs {
				Expect(c.Lookup(addr)).To(BeFalse())
				Expect(c.Insert(addr).Valid).To(BeFalse())
			}

			Expect(c.Lookup(0x800)).To(BeFalse())
			victim := c.Insert(0x800)
			Expect(victim.Valid).To(BeTrue())
			Expect(victim.Dirty).To(BeFalse())
			Expect(victim.Addr).To(Equal(uint32(0x000)))

			Expect(c.Contains(0x000)).To(BeFalse())
			for _, addr := range []uint32{0x200, 0x400, 0x600, 0x800} {
				Expect(c.Contains(addr)).To(BeTrue())
			}

			stats := c.Stats()
			Expect(stats.Misses).To(Equal(uint64(5)))
			Expect(stats.Hits).To(Equal(uint64(0)))
			Expect(stats.Evictions).To(Equal(uint64(1)))
		})

		It("should evict the line not touched for longest", func() {
			for _, addr := range []uint32{0x000, 0x200, 0x400, 0x600} {
				c.Insert(addr)
			}

			c.Lookup(0x000)
			c.Lookup(0x400)

			Expect(c.Insert(0x800).Addr).To(Equal(uint32(0x200)))
			Expect(c.Insert(0xA00).Addr).To(Equal(uint32(0x600)))
			Expect(c.Insert(0xC00).Addr).To(Equal(uint32(0x000)))
		})

		It("should report a dirty victim with its block-aligned address", func() {
			c.Insert(0x0013)
			c.SetDirty(0x0013, true)

			for _, addr := range []uint32{0x200, 0x400, 0x600} {
				c.Insert(addr)
			}

			victim := c.Insert(0x800)
			Expect(victim.Dirty).To(BeTrue())
			Expect(victim.Addr).To(Equal(uint32(0x0000)))
			Expect(c.Stats().DirtyEvictions).To(Equal(uint64(1)))
		})

		It("should insert lines clean", func() {
			c.Insert(0x000)
			c.SetDirty(0x000, true)
			for _, addr := range []uint32{0x200, 0x400, 0x600, 0x800} {
				c.Insert(addr)
			}

			Expect(c.IsDirty(0x800)).To(BeFalse())
			Expect(c.DirtyBlocks()).To(BeEmpty())
		})

		It("should leave other sets alone", func() {
			c.Insert(0x040)
			for _, addr := range []uint32{0x000, 0x200, 0x400, 0x600, 0x800} {
				c.Insert(addr)
			}

			Expect(c.Contains(0x040)).To(BeTrue())
			Expect(ranks(c, 1)).To(ConsistOf(0, 1, 2, 3))
		})
	})

	Describe("Fill", func() {
		It("should promote a resident line without counting", func() {
			c.Insert(0x000)
			c.Insert(0x200)

			hit, victim := c.Fill(0x000)
			Expect(hit).To(BeTrue())
			Expect(victim.Valid).To(BeFalse())
			Expect(c.Stats().Accesses()).To(Equal(uint64(0)))
			Expect(c.ResidentBlocks()).To(ConsistOf(uint32(0x000), uint32(0x200)))
		})

		It("should insert a missing line", func() {
			hit, _ := c.Fill(0x400)
			Expect(hit).To(BeFalse())
			Expect(c.Contains(0x400)).To(BeTrue())
			Expect(c.Stats().Misses).To(Equal(uint64(0)))
		})
	})

	Describe("SetDirty", func() {
		It("should flip the dirty flag without changing recency", func() {
			c.Insert(0x000)
			c.Insert(0x200)
			before := ranks(c, 0)

			c.SetDirty(0x000, true)
			Expect(c.IsDirty(0x000)).To(BeTrue())
			Expect(ranks(c, 0)).To(Equal(before))

			c.SetDirty(0x000, false)
			Expect(c.IsDirty(0x000)).To(BeFalse())
		})

		It("should panic for a non-resident address", func() {
			Expect(func() { c.SetDirty(0x1234, true) }).To(Panic())
		})
	})

	Describe("Invalidate", func() {
		It("should drop the line and make its block the victim", func() {
			for _, addr := range []uint32{0x000, 0x200, 0x400, 0x600} {
				c.Insert(addr)
			}
			c.SetDirty(0x400, true)

			Expect(c.Invalidate(0x400)).To(BeTrue())
			Expect(c.Contains(0x400)).To(BeFalse())
			Expect(c.DirtyBlocks()).To(BeEmpty())
			Expect(c.Verify()).To(Succeed())

			victim := c.Insert(0x800)
			Expect(victim.Valid).To(BeFalse())
			Expect(c.ResidentBlocks()).To(HaveLen(4))
		})

		It("should report absent lines", func() {
			Expect(c.Invalidate(0x400)).To(BeFalse())
		})
	})

	Describe("Hooks", func() {
		It("should invoke hooks on hit, miss and eviction", func() {
			hook := &recordingHook{}
			c.AcceptHook(hook)

			c.Lookup(0x000)
			c.Insert(0x000)
			c.Lookup(0x000)
			for _, addr := range []uint32{0x200, 0x400, 0x600, 0x800} {
				c.Insert(addr)
			}

			Expect(hook.positions).To(Equal([]string{"Miss", "Hit", "Evict"}))
			Expect(hook.victims).To(HaveLen(1))
			Expect(hook.victims[0].Addr).To(Equal(uint32(0x000)))
		})
	})

	Describe("Permutation invariant", func() {
		It("should hold after every random operation", func() {
			rng := rand.New(rand.NewSource(42))

			for i := 0; i < 5000; i++ {
				// Few distinct lines per set so hits and evictions both happen.
				addr := uint32(rng.Intn(64)) * 0x40
				switch rng.Intn(4) {
				case 0, 1:
					if !c.Lookup(addr) {
						c.Insert(addr)
					}
				case 2:
					c.Fill(addr)
					c.SetDirty(addr, true)
				case 3:
					c.Invalidate(addr)
				}

				Expect(c.Verify()).To(Succeed())
				for index := uint32(0); index < 8; index++ {
					Expect(ranks(c, index)).To(ConsistOf(0, 1, 2, 3))
				}
			}
		})
	})

	Describe("Reset and Release", func() {
		It("should clear lines and statistics on Reset", func() {
			c.Insert(0x000)
			c.Lookup(0x000)

			c.Reset()

			Expect(c.Contains(0x000)).To(BeFalse())
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			Expect(c.Verify()).To(Succeed())
		})

		It("should panic when used after Release", func() {
			c.Release()

			Expect(c.Released()).To(BeTrue())
			Expect(func() { c.Lookup(0x000) }).To(Panic())
		})
	})

	Describe("Default configurations", func() {
		It("should create valid level configs", func() {
			for _, config := range []cache.Config{
				cache.DefaultL1IConfig(),
				cache.DefaultL1DConfig(),
				cache.DefaultL2Config(),
			} {
				Expect(config.Validate()).To(Succeed())
				Expect(config.BlockSize).To(Equal(64))
				Expect(config.Policy).To(Equal(cache.WriteBack))
			}
		})

		It("should create L1D config", func() {
			config := cache.DefaultL1DConfig()
			Expect(config.Size).To(Equal(32 * 1024))
			Expect(config.Associativity).To(Equal(8))
			Expect(config.NumSets()).To(Equal(64))
		})
	})
})

var _ = Describe("Write-through cache", func() {
	It("should fail verification when a block is dirty", func() {
		c, err := cache.New("wt", cache.Config{
			Size: 1024, Associativity: 2, BlockSize: 64, Policy: cache.WriteThrough,
		})
		Expect(err).NotTo(HaveOccurred())

		c.Insert(0x100)
		Expect(c.Verify()).To(Succeed())

		c.SetDirty(0x100, true)
		Expect(c.Verify()).To(HaveOccurred())
	})
})

var _ = Describe("Policy", func() {
	It("should parse canonical and short names", func() {
		p, err := cache.ParsePolicy("Write-Through")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(cache.WriteThrough))

		p, err = cache.ParsePolicy("wb")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(cache.WriteBack))

		_, err = cache.ParsePolicy("write-around")
		Expect(err).To(MatchError(cache.ErrConfiguration))
	})

	It("should round-trip through text", func() {
		text, err := cache.WriteThrough.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(Equal("write-through"))

		var p cache.Policy
		Expect(p.UnmarshalText(text)).To(Succeed())
		Expect(p).To(Equal(cache.WriteThrough))
	})
})
