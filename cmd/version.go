package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mabhi256/heapscope/internal/heap"
)

var (
	// This will be set by goreleaser
	version = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heapscope version %s\n", version)
		fmt.Printf("detectors: %s\n", strings.Join(heap.Detectors(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
