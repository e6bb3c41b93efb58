// Package main provides the bench command: a test harness for embedded
// boards. It connects to a lab host over SSH, powers boards on and off, and
// runs build and verification testcases against them.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine"
	"github.com/benchlab/bench/selftests"
	"github.com/benchlab/bench/tasks"
)

var version = "dev"

var (
	flagConfigs []string
	flagFilters framework.RegexFilters
	flagDebug   bool
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "bench",
	Short: "Test harness for embedded boards",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			log.SetLevel(log.DebugLevel)
			log.Debug("debug logging enabled")
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bench", version)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the builtin testcases",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range tasks.Names() {
			fmt.Println(name)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run <testcase>...",
	Short: "Run testcases against the configured lab and board",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if len(flagConfigs) == 0 {
			return fmt.Errorf("at least one --config file is required")
		}
		cfg := config.New()
		for _, path := range flagConfigs {
			if err := cfg.MergeFile(path); err != nil {
				return err
			}
		}

		// Resolve names before connecting anywhere.
		funcs := make(map[string]tasks.Func, len(args))
		for _, name := range args {
			fn, err := tasks.Lookup(name)
			if err != nil {
				return err
			}
			funcs[name] = fn
		}

		events := newConsoleEventLogger(os.Stdout, flagQuiet, flagDebug)
		mgr, err := machine.NewManager(cfg, events)
		if err != nil {
			return err
		}
		defer mgr.Close()

		framework.PrintFilterDescription(os.Stdout, flagFilters)
		testLogger := &consoleTestLogger{debugOutputOnFailure: true, debugOutputOnSuccess: flagDebug}
		results := framework.Run(flagFilters.AsFilter, testLogger, func(c *framework.Context) {
			for _, name := range args {
				fn := funcs[name]
				c.Run(name, func(c *framework.Context) {
					if err := fn(c, mgr, cfg); err != nil {
						c.Errorf("%s", err)
						c.FailNow()
					}
				})
			}
		})

		fmt.Println()
		framework.PrintResults(os.Stdout, results)
		if !results.OK() {
			os.Exit(1)
		}
		return nil
	},
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the harness self-tests (no lab required)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		events := newConsoleEventLogger(os.Stdout, true, flagDebug)
		testLogger := &consoleTestLogger{debugOutputOnFailure: true, debugOutputOnSuccess: flagDebug}
		results := selftests.RunSuite(flagFilters.AsFilter, testLogger, events)

		fmt.Println()
		framework.PrintResults(os.Stdout, results)
		if !results.OK() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only show essential output")
	rootCmd.PersistentFlags().Var(&flagFilters.MustMatch, "run", "regex pattern(s) to select tests to run")
	rootCmd.PersistentFlags().Var(&flagFilters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	runCmd.Flags().StringArrayVarP(&flagConfigs, "config", "c", nil, "configuration file(s), later files override earlier ones")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(selftestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
