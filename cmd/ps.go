package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mabhi256/heapscope/internal/session"
	"github.com/mabhi256/heapscope/utils"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List processes that can be attached to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := session.Processes()
		if err != nil {
			return err
		}

		sort.Slice(procs, func(i, j int) bool {
			return procs[i].PID < procs[j].PID
		})

		fmt.Println(utils.HeaderStyle.Render(fmt.Sprintf("%-8s %-5s %s", "PID", "STATE", "COMMAND")))
		for _, proc := range procs {
			fmt.Printf("%-8d %-5s %s\n", proc.PID, proc.State, proc.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(psCmd)
}
