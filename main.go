// Package main provides the entry point for cachesim, a trace-driven
// simulator of an L1I/L1D/L2 cache hierarchy.
//
// For the full CLI, use: go run ./cmd/cachesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("cachesim - L1I/L1D/L2 cache hierarchy simulator")
	fmt.Println("Built on the Akita cache directory")
	fmt.Println("")
	fmt.Println("Usage: cachesim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run      Replay trace files and print hit rates")
	fmt.Println("  bench    Run the built-in synthetic workloads")
	fmt.Println("  gen      Write a synthetic workload as a trace")
	fmt.Println("  config   Print the default hierarchy configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/cachesim --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/cachesim' instead.")
	}
}
