package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crosscheck/internal/config"
	"crosscheck/internal/harness"
	"crosscheck/internal/logging"
)

var (
	// Flag overrides; environment is the baseline (config.FromEnv).
	flagFixture       string
	flagWorkers       int
	flagDebug         bool
	flagTool          string
	flagKeepSandboxes bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "crosscheck [samples...]",
	Short: "Cross-product round-trip verification for the code generator",
	Long: `crosscheck runs every (fixture, sample) combination of the test matrix:
for each target fixture it generates code from the sample, runs the fixture's
verification procedure in an isolated sandbox, and checks that the generated
artifact round-trips the sample.

With no arguments, samples come from the default sample directory (the public
subset on pull-request CI runs). A single directory argument expands to every
sample file inside it; otherwise each argument is an explicit sample path.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(flagDebug || config.FromEnv().Debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runMatrix,
}

func runMatrix(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if flagFixture != "" {
		cfg.OnlyFixture = flagFixture
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagTool != "" {
		cfg.ToolBin = flagTool
	}
	if flagKeepSandboxes {
		cfg.KeepSandboxes = true
	}

	tally, err := harness.Run(cmd.Context(), harness.Params{
		Config: cfg,
		Args:   args,
		Log:    logger,
	})
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "passed %d, tolerated %d, skipped %d\n",
		tally.Passed, tally.Tolerated, tally.Skipped)
	return nil
}

func init() {
	rootCmd.Flags().StringVar(&flagFixture, "fixture", "", "run only the named fixture")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker count override (default: host parallelism)")
	rootCmd.Flags().StringVar(&flagTool, "tool", "", "code-generator binary under test")
	rootCmd.Flags().BoolVar(&flagKeepSandboxes, "keep-sandboxes", false, "retain sandbox directories for inspection")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
