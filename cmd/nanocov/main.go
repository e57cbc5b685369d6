package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	logLevel string
	runID    string
	log      *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "nanocov",
	Short: "nanocov - parallel per-base coverage for indexed BAM files",
	Long: `nanocov computes per-base sequencing coverage from an indexed BAM file.

The genome (or the regions of a BED file) is split into chunks that are
queried through the BAM index and counted in parallel. The merged coverage
is written as a tab-separated table, together with per-chromosome plots and
an optional cramino-style summary.

Run without a subcommand to compute coverage:
  nanocov -i sample.bam -o coverage.tsv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	RunE: runCoverage,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	rootCmd.AddCommand(depthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging configures the logger from --log-level. Every line carries
// the run id so concurrent runs can be told apart in shared logs.
func setupLogging() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	runID = uuid.NewString()
	log = logger.WithField("run", runID)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nanocov version %s\n", version)
		fmt.Println("Parallel per-base coverage for indexed BAM files")
	},
}
