package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cachesim",
		Short: "Replay memory-access traces through an L1I/L1D/L2 cache hierarchy.",
		Long: `cachesim replays instruction fetches, data reads and data writes ` +
			`through an L1 instruction cache, an L1 data cache and a unified L2 ` +
			`cache with LRU replacement, and reports the hit rate of every level.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd(), newConfigCmd(), newBenchCmd(), newGenCmd())

	return rootCmd
}
