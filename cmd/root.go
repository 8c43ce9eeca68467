package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/bnclabs/golog"
	s "github.com/bnclabs/gosettings"
	"github.com/spf13/cobra"

	"github.com/mabhi256/heapscope/internal/config"
	"github.com/mabhi256/heapscope/internal/events"
	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/watch"
)

var (
	interval     int64
	detectors    string
	nativeEvents bool
	logLevel     string
	logFile      string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "heapscope",
	Short: "Inspect the heap allocator of running processes and core dumps",
	Long: `heapscope detects which malloc implementation a process or core dump uses
and offers allocator specific heap commands in an interactive session.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setts := s.Settings{
			"watch.interval": interval,
			"detectors":      detectors,
			"events.native":  nativeEvents,
			"log.level":      logLevel,
			"log.file":       logFile,
		}

		var err error
		cfg, err = config.New(setts)
		if err != nil {
			return err
		}

		log.SetLogger(nil, cfg.LogSettings())
		if cfg.LogLevel != "ignore" {
			heap.LogComponents("all")
			events.LogComponents("all")
			watch.LogComponents("all")
		}

		firstRunSetup(cmd)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	defaults := config.Defaultsettings()

	flags := rootCmd.PersistentFlags()
	flags.Int64VarP(&interval, "interval", "i", defaults.Int64("watch.interval"), "Selected target poll interval in ms")
	flags.StringVar(&detectors, "detectors", defaults.String("detectors"), "Heap detectors to run, in order")
	flags.BoolVar(&nativeEvents, "native-events", defaults.Bool("events.native"), "Use native resume events instead of command hooks")
	flags.StringVar(&logLevel, "log-level", defaults.String("log.level"), "Log level")
	flags.StringVar(&logFile, "log-file", defaults.String("log.file"), "Log to a file instead of stderr")

	rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"ignore", "fatal", "error", "warn", "info", "verbose", "debug", "trace"}, cobra.ShellCompDirectiveNoFileComp
	})
	rootCmd.RegisterFlagCompletionFunc("detectors", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{strings.Join(heap.Detectors(), ",")}, cobra.ShellCompDirectiveNoFileComp
	})
}
