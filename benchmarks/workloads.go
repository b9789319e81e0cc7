// Package benchmarks provides synthetic access workloads and a harness that
// replays them through a cache hierarchy.
package benchmarks

import (
	"math/rand/v2"

	"github.com/sarchlab/cachesim/hierarchy"
	"github.com/sarchlab/cachesim/trace"
)

// Base addresses of the regions workloads touch.
const (
	codeBase  uint32 = 0x00400000
	dataBase  uint32 = 0x10000000
	stackBase uint32 = 0x7fff0000

	wordSize = 4
)

// GetWorkloads returns the standard set of workloads. Each one targets a
// specific cache behavior.
func GetWorkloads() []Workload {
	return []Workload{
		loopFetch(),
		sequentialRead(),
		writeStream(),
		strideConflict(),
		matrixMultiply(),
		functionCalls(),
		randomAccess(),
	}
}

// GetCoreWorkloads returns a small set for quick validation.
func GetCoreWorkloads() []Workload {
	return []Workload{
		loopFetch(),
		sequentialRead(),
		matrixMultiply(),
	}
}

// GetWorkload returns the named workload.
func GetWorkload(name string) (Workload, bool) {
	for _, w := range GetWorkloads() {
		if w.Name == name {
			return w, true
		}
	}

	return Workload{}, false
}

// emitter forwards accesses to a sink until the first error.
type emitter struct {
	sink trace.Sink
	err  error
}

func (e *emitter) emit(kind hierarchy.AccessKind, addr uint32) {
	if e.err == nil {
		e.err = e.sink.Access(kind, addr)
	}
}

func (e *emitter) fetch(pc uint32, n int) {
	for i := 0; i < n; i++ {
		e.emit(hierarchy.Fetch, pc+uint32(i*wordSize))
	}
}

func generator(body func(e *emitter)) func(trace.Sink) error {
	return func(sink trace.Sink) error {
		e := &emitter{sink: sink}
		body(e)

		return e.err
	}
}

// loopFetch runs a 64-instruction loop body 100 times.
func loopFetch() Workload {
	const (
		bodyLength = 64
		iterations = 100
	)

	return Workload{
		Name:        "loop_fetch",
		Description: "100 iterations of a 64-instruction loop - measures L1I reuse",
		Generate: generator(func(e *emitter) {
			for i := 0; i < iterations; i++ {
				e.fetch(codeBase, bodyLength)
			}
		}),
	}
}

// sequentialRead reads 64 KiB one word at a time.
func sequentialRead() Workload {
	const size = 64 << 10

	return Workload{
		Name:        "sequential_read",
		Description: "word-by-word read of 64 KiB - one miss per line",
		Generate: generator(func(e *emitter) {
			for off := uint32(0); off < size; off += wordSize {
				e.emit(hierarchy.Read, dataBase+off)
			}
		}),
	}
}

// writeStream writes 512 KiB one word at a time, larger than every level.
func writeStream() Workload {
	const size = 512 << 10

	return Workload{
		Name:        "write_stream",
		Description: "word-by-word write of 512 KiB - forces dirty evictions at every level",
		Generate: generator(func(e *emitter) {
			for off := uint32(0); off < size; off += wordSize {
				e.emit(hierarchy.Write, dataBase+off)
			}
		}),
	}
}

// strideConflict cycles through nine lines that share a set of the default
// L1D, one more than its associativity.
func strideConflict() Workload {
	const (
		stride     = 4 << 10
		lines      = 9
		iterations = 100
	)

	return Workload{
		Name:        "stride_conflict",
		Description: "9 lines 4 KiB apart read round-robin - thrashes an 8-way 32 KiB L1D",
		Generate: generator(func(e *emitter) {
			for i := 0; i < iterations; i++ {
				for l := uint32(0); l < lines; l++ {
					e.emit(hierarchy.Read, dataBase+l*stride)
				}
			}
		}),
	}
}

// matrixMultiply computes C = A * B for 16x16 word matrices in row-major
// order, fetching a 4-instruction inner loop per multiply-add.
func matrixMultiply() Workload {
	const (
		n        = 16
		a        = dataBase
		b        = dataBase + n*n*wordSize
		c        = dataBase + 2*n*n*wordSize
		innerPC  = codeBase + 0x100
		outerPC  = codeBase + 0x140
		innerLen = 4
		outerLen = 6
	)

	element := func(base uint32, row, col int) uint32 {
		return base + uint32((row*n+col)*wordSize)
	}

	return Workload{
		Name:        "matrix_multiply",
		Description: "16x16 word matrix multiply - row-major A, column walk over B",
		Generate: generator(func(e *emitter) {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					for k := 0; k < n; k++ {
						e.fetch(innerPC, innerLen)
						e.emit(hierarchy.Read, element(a, i, k))
						e.emit(hierarchy.Read, element(b, k, j))
					}

					e.fetch(outerPC, outerLen)
					e.emit(hierarchy.Write, element(c, i, j))
				}
			}
		}),
	}
}

// functionCalls models a caller invoking a leaf function that spills two
// registers to the stack.
func functionCalls() Workload {
	const (
		calls     = 500
		callerPC  = codeBase + 0x800
		calleePC  = codeBase + 0x2000
		callerLen = 5
		calleeLen = 12
		frameSize = 16
	)

	return Workload{
		Name:        "function_calls",
		Description: "500 calls of a leaf function with a stack frame - call/return locality",
		Generate: generator(func(e *emitter) {
			sp := stackBase - frameSize
			for i := 0; i < calls; i++ {
				e.fetch(callerPC, callerLen)

				e.emit(hierarchy.Write, sp)
				e.emit(hierarchy.Write, sp+8)
				e.fetch(calleePC, calleeLen)
				e.emit(hierarchy.Read, dataBase+uint32(i%64)*wordSize)
				e.emit(hierarchy.Read, sp)
				e.emit(hierarchy.Read, sp+8)
			}
		}),
	}
}

// randomAccess touches words of a 1 MiB region in a fixed pseudo-random
// order, one write per four accesses.
func randomAccess() Workload {
	const (
		size     = 1 << 20
		accesses = 20000
	)

	return Workload{
		Name:        "random_access",
		Description: "20000 random word accesses over 1 MiB, 25% writes - low locality",
		Generate: generator(func(e *emitter) {
			rng := rand.New(rand.NewPCG(0x5eed, 0xcace))
			for i := 0; i < accesses; i++ {
				addr := dataBase + rng.Uint32N(size/wordSize)*wordSize

				kind := hierarchy.Read
				if rng.IntN(4) == 0 {
					kind = hierarchy.Write
				}

				e.emit(kind, addr)
			}
		}),
	}
}
