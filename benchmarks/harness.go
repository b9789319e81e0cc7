package benchmarks

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/cachesim/hierarchy"
	"github.com/sarchlab/cachesim/trace"
)

// Workload defines a synthetic access stream.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains what the workload measures
	Description string

	// Generate emits every access of the workload into sink, in order
	Generate func(sink trace.Sink) error
}

// Result holds the statistics of a single workload run.
type Result struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains what the workload measures
	Description string `json:"description"`

	// Accesses is the number of fetches, reads and writes replayed
	Accesses uint64 `json:"accesses"`

	// Report holds the per-level statistics
	Report hierarchy.Report `json:"report"`

	// WallTime is the actual time taken to replay the workload
	WallTime time.Duration `json:"wall_time_ns"`
}

// HitRate returns the hit rate of the named level, or 0 if it is unknown.
func (r Result) HitRate(level string) float64 {
	stats, ok := r.Report.Level(level)
	if !ok {
		return 0
	}

	return stats.HitRate()
}

// HarnessConfig configures the workload harness.
type HarnessConfig struct {
	// Hierarchy is the geometry every workload runs on
	Hierarchy *hierarchy.Config

	// Verify checks the cache invariants after every access
	Verify bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Hierarchy: hierarchy.DefaultConfig(),
		Output:    os.Stdout,
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new workload harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Hierarchy == nil {
		config.Hierarchy = hierarchy.DefaultConfig()
	}

	return &Harness{
		config:    config,
		workloads: []Workload{},
	}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll executes all workloads in order, each on a fresh hierarchy.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.workloads))

	for _, w := range h.workloads {
		result, err := h.runWorkload(w)
		if err != nil {
			return results, fmt.Errorf("workload %s: %w", w.Name, err)
		}

		results = append(results, result)
	}

	return results, nil
}

// verifier checks the hierarchy after each access.
type verifier struct {
	h *hierarchy.Hierarchy
}

func (v verifier) Access(kind hierarchy.AccessKind, addr uint32) error {
	if err := v.h.Access(kind, addr); err != nil {
		return err
	}

	return v.h.Verify()
}

func (h *Harness) runWorkload(w Workload) (Result, error) {
	hier, err := hierarchy.New(*h.config.Hierarchy)
	if err != nil {
		return Result{}, err
	}

	var sink trace.Sink = hier
	if h.config.Verify {
		sink = verifier{hier}
	}

	start := time.Now()
	err = w.Generate(sink)
	wallTime := time.Since(start)

	report := hier.Finish()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Name:        w.Name,
		Description: w.Description,
		Accesses:    report.TotalAccesses,
		Report:      report,
		WallTime:    wallTime,
	}, nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== Cache Workload Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Accesses: %d\n", r.Accesses)

		for _, level := range r.Report.Levels {
			_, _ = fmt.Fprintf(out, "  --- %s ---\n", level.Name)
			_, _ = fmt.Fprintf(out, "  Hits:            %d\n", level.Hits)
			_, _ = fmt.Fprintf(out, "  Misses:          %d\n", level.Misses)
			_, _ = fmt.Fprintf(out, "  Hit Rate:        %.2f%%\n", 100*level.HitRate())
			if level.DirtyEvictions > 0 {
				_, _ = fmt.Fprintf(out, "  Dirty Evictions: %d\n", level.DirtyEvictions)
			}
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out,
		"name,accesses,l1i_hits,l1i_misses,l1d_hits,l1d_misses,l2_hits,l2_misses,l1d_write_backs,l2_dropped")

	for _, r := range results {
		l1i, _ := r.Report.Level(hierarchy.L1Instruction.String())
		l1d, _ := r.Report.Level(hierarchy.L1Data.String())
		l2, _ := r.Report.Level(hierarchy.L2.String())

		_, _ = fmt.Fprintf(out, "%s,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Accesses,
			l1i.Hits,
			l1i.Misses,
			l1d.Hits,
			l1d.Misses,
			l2.Hits,
			l2.Misses,
			l1d.WriteBacks,
			l2.Dropped,
		)
	}
}
