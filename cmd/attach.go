package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mabhi256/heapscope/internal/app"
	"github.com/mabhi256/heapscope/internal/session"
	"github.com/mabhi256/heapscope/utils"
)

var attachCmd = &cobra.Command{
	Use:   "attach [PID|CORE]...",
	Short: "Start an interactive heap session",
	Long: `Start an interactive session with the given processes and core dumps as
targets. The last one given is selected.

Examples:
  heapscope attach                      # Empty session, use "attach" and "core" inside
  heapscope attach 1234                 # Inspect process 1234
  heapscope attach core.1234 5678       # A core dump and a live process`,
	ValidArgsFunction: completeProcesses,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, os.Stdout)
		if err != nil {
			return err
		}

		for _, arg := range args {
			t, err := a.AddTarget(arg)
			if err != nil {
				return fmt.Errorf("invalid target '%s': %w", arg, err)
			}
			fmt.Printf("Target %d: %s\n", t.ID(), t.Name())
		}

		tty := isatty.IsTerminal(os.Stdin.Fd())
		return a.Run(cmd.Context(), os.Stdin, tty)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

// completeProcesses offers live PIDs with their command names, and core
// dumps
func completeProcesses(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	completions := utils.CompleteFiles(toComplete, utils.IsCoreFileName)

	procs, err := session.Processes()
	if err != nil {
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
	for _, proc := range procs {
		completions = append(completions, fmt.Sprintf("%s\t%s", strconv.Itoa(proc.PID), proc.Name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
