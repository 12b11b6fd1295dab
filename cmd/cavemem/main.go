// Cavemem runs the memory-access core of the arcade system: it boot-loads
// a synthetic image, renders frames of synthetic traffic, and reports how
// the burst arbiters served their clients.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cavemem",
	Short: "Simulate the arcade memory-access core.",
	Long: `Cavemem simulates the shared-memory subsystem of the arcade ` +
		`system: burst arbiters, line caches, the boot loader, and the ` +
		`triple-buffered frame buffer feeding the pixel queue.`,
}

func main() {
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
