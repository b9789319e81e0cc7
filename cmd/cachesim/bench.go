package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/hierarchy"
	"github.com/sarchlab/cachesim/trace"
)

func newBenchCmd() *cobra.Command {
	var (
		configPath string
		csvOutput  bool
		jsonOutput bool
		verify     bool
		core       bool
	)

	cmd := &cobra.Command{
		Use:   "bench [workload...]",
		Short: "Run synthetic workloads through the hierarchy and print their statistics.",
		Long: `bench replays built-in synthetic workloads, each on a fresh hierarchy. ` +
			`Without arguments every workload runs. "cachesim gen --list" prints ` +
			`the workload names.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadHierarchyConfig(configPath)
			if err != nil {
				return err
			}

			workloads, err := selectWorkloads(args, core)
			if err != nil {
				return err
			}

			harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
				Hierarchy: config,
				Verify:    verify,
				Output:    cmd.OutOrStdout(),
			})
			harness.AddWorkloads(workloads)

			results, err := harness.RunAll()
			if err != nil {
				return err
			}

			switch {
			case jsonOutput:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			case csvOutput:
				harness.PrintCSV(results)
			default:
				harness.PrintResults(results)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to hierarchy configuration JSON file")
	flags.BoolVar(&csvOutput, "csv", false, "Output results in CSV format")
	flags.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	flags.BoolVar(&verify, "verify", false, "Check cache invariants after every access")
	flags.BoolVar(&core, "core", false, "Run only the core workloads")

	return cmd
}

func newGenCmd() *cobra.Command {
	var (
		output string
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "gen <workload>",
		Short: "Write a synthetic workload as a trace file.",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, w := range benchmarks.GetWorkloads() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", w.Name, w.Description)
				}

				return nil
			}

			workloads, err := selectWorkloads(args, false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create trace: %w", err)
				}
				defer func() { _ = f.Close() }()

				out = f
			}

			w := trace.NewWriter(out)
			if err := workloads[0].Generate(w); err != nil {
				return err
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the trace to this file instead of stdout")
	cmd.Flags().BoolVar(&list, "list", false, "List the available workloads")

	return cmd
}

func selectWorkloads(names []string, core bool) ([]benchmarks.Workload, error) {
	if len(names) == 0 {
		if core {
			return benchmarks.GetCoreWorkloads(), nil
		}

		return benchmarks.GetWorkloads(), nil
	}

	workloads := make([]benchmarks.Workload, 0, len(names))
	for _, name := range names {
		w, ok := benchmarks.GetWorkload(name)
		if !ok {
			return nil, fmt.Errorf("unknown workload %q (have %s)", name, workloadNames())
		}

		workloads = append(workloads, w)
	}

	return workloads, nil
}

func workloadNames() string {
	all := benchmarks.GetWorkloads()

	names := make([]string, 0, len(all))
	for _, w := range all {
		names = append(names, w.Name)
	}

	return strings.Join(names, ", ")
}

func loadHierarchyConfig(path string) (*hierarchy.Config, error) {
	if path == "" {
		return hierarchy.DefaultConfig(), nil
	}

	config, err := hierarchy.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
