package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/cachesim/hierarchy"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/trace"
)

type runOptions struct {
	configPath string
	verbose    bool
	verify     bool
	jsonOutput bool
	details    bool
	dbPath     string
	record     bool
	jobs       int
	cpuProfile string
	memProfile string
}

type runResult struct {
	name   string
	report hierarchy.Report
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [trace...]",
		Short: "Replay one or more trace files, or stdin when none is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.record = opts.record || opts.dbPath != ""
			return runTraces(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to hierarchy configuration JSON file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every access and cache event")
	flags.BoolVar(&opts.verify, "verify", false, "Check cache invariants after every access")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print reports as JSON")
	flags.BoolVar(&opts.details, "details", false, "Print eviction and propagation counters")
	flags.BoolVar(&opts.record, "record", false, "Record statistics into a SQLite database")
	flags.StringVar(&opts.dbPath, "db", "",
		"SQLite file to record into (implies --record; a generated name when empty)")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "Maximum traces replayed at once (0 = unlimited)")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "", "Write cpu profile to file")
	flags.StringVar(&opts.memProfile, "memprofile", "", "Write memory profile to file")

	return cmd
}

func runTraces(
	ctx context.Context,
	stdout, stderr io.Writer,
	paths []string,
	opts *runOptions,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config, err := loadHierarchyConfig(opts.configPath)
	if err != nil {
		return err
	}

	if opts.cpuProfile != "" {
		stop, err := startCPUProfile(opts.cpuProfile)
		if err != nil {
			return err
		}
		defer stop()
	}

	if len(paths) == 0 {
		paths = []string{"-"}
	}

	results := make([]runResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}

	for i, path := range paths {
		g.Go(func() error {
			r, err := replayFile(gctx, path, *config, stderr, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = runResult{name: path, report: r}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if opts.memProfile != "" {
		if err := writeHeapProfile(opts.memProfile); err != nil {
			return err
		}
	}

	if err := printResults(stdout, results, opts); err != nil {
		return err
	}

	if opts.record {
		return recordResults(stderr, results, opts.dbPath)
	}

	return nil
}

func replayFile(
	ctx context.Context,
	path string,
	config hierarchy.Config,
	stderr io.Writer,
	opts *runOptions,
) (hierarchy.Report, error) {
	in := io.Reader(os.Stdin)
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return hierarchy.Report{}, fmt.Errorf("failed to open trace: %w", err)
		}
		defer func() { _ = f.Close() }()

		in = f
	}

	var hierarchyOpts []hierarchy.Option
	if opts.verbose {
		logger := log.New(stderr, path+": ", 0)
		hierarchyOpts = append(hierarchyOpts,
			hierarchy.WithHook(hierarchy.NewLogHook(logger)))
	}

	h, err := hierarchy.New(config, hierarchyOpts...)
	if err != nil {
		return hierarchy.Report{}, err
	}

	var sink trace.Sink = h
	if opts.verify {
		sink = verifyingSink{h}
	}

	if _, err := trace.Replay(ctx, in, sink); err != nil {
		h.Finish()
		return hierarchy.Report{}, err
	}

	return h.Finish(), nil
}

// verifyingSink checks every level after each access.
type verifyingSink struct {
	h *hierarchy.Hierarchy
}

func (s verifyingSink) Access(kind hierarchy.AccessKind, addr uint32) error {
	if err := s.h.Access(kind, addr); err != nil {
		return err
	}

	return s.h.Verify()
}

func printResults(w io.Writer, results []runResult, opts *runOptions) error {
	for i, result := range results {
		if opts.jsonOutput {
			if err := report.WriteJSON(w, result.report); err != nil {
				return err
			}

			continue
		}

		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "Trace: %s\n", result.name)
		}

		if err := report.WriteText(w, result.report); err != nil {
			return err
		}

		if opts.details {
			if err := report.WriteDetails(w, result.report); err != nil {
				return err
			}
		}
	}

	return nil
}

func recordResults(stderr io.Writer, results []runResult, dbPath string) error {
	recorder, err := report.NewSQLiteRecorder(dbPath)
	if err != nil {
		return err
	}

	for _, result := range results {
		recorder.Record(result.name, result.report)
	}

	if err := recorder.Close(); err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Statistics recorded in %s (run %s)\n",
		recorder.Path(), recorder.RunID())

	return nil
}

func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	return nil
}
