package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mabhi256/heapscope/internal/app"
)

var detectCmd = &cobra.Command{
	Use:               "detect PID|CORE",
	Short:             "Detect and describe the heap implementation of one target",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProcesses,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, os.Stdout)
		if err != nil {
			return err
		}

		if _, err := a.AddTarget(args[0]); err != nil {
			return fmt.Errorf("invalid target '%s': %w", args[0], err)
		}
		a.DetectOnce()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
