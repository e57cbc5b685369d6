package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/nanocov-go/pkg/bam"
	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
	"github.com/scttfrdmn/nanocov-go/pkg/output"
)

var (
	depthChunkSize string
	depthThreads   int
	depthMeanOnly  bool
)

var depthCmd = &cobra.Command{
	Use:   "depth <input.bam> <region>",
	Short: "Print per-base depth for one region",
	Long: `Print per-base depth for a single region of an indexed BAM file.

The region format is: chr:start-end, 1-based and inclusive
(e.g., chr1:1000000-2000000). Only the index bins overlapping the region
are read.

Examples:
  nanocov depth sample.bam chr1:1000000-2000000
  nanocov depth sample.bam chr1:1000000-2000000 --mean`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bamPath := args[0]

		region, err := coverage.ParseRegion(args[1])
		if err != nil {
			return fmt.Errorf("invalid region: %w", err)
		}

		cfg := coverage.NewConfig()
		cfg.Input = bamPath
		if depthThreads > 0 {
			cfg.Workers = depthThreads
		}
		if cfg.ChunkSize, err = coverage.ParseBases(depthChunkSize); err != nil {
			return fmt.Errorf("invalid chunk size: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		catalog, err := bam.ReadCatalog(bamPath)
		if err != nil {
			return err
		}
		ref, ok := catalog.Lookup(region.Chromosome)
		if !ok {
			return fmt.Errorf("reference %q not in BAM header", region.Chromosome)
		}

		engine, err := coverage.NewEngine(cfg, coverage.Catalog{ref}, bam.Opener(bamPath, cfg.IndexPath), log)
		if err != nil {
			return err
		}
		// region as a BED interval
		engine.Include = coverage.Regions{
			ref.Name: {{Start: region.Start - 1, End: region.End - 1}},
		}

		var sink coverage.Sink
		var table *output.TSVWriter
		if !depthMeanOnly {
			if table, err = output.NewTSVStream(os.Stdout); err != nil {
				return err
			}
			sink = table
		}

		result, err := engine.RunParallel(context.Background(), sink)
		if err != nil {
			return err
		}
		if table != nil {
			if err := table.Close(); err != nil {
				return err
			}
		}

		if depthMeanOnly {
			cs, ok := result.Summary.PerChromosome[ref.Name]
			if !ok {
				fmt.Printf("%s\tno data\n", args[1])
				return nil
			}
			fmt.Printf("%s\t%.2f\t%d\n", args[1], cs.MeanDepth, cs.CoveredBases)
		}
		return nil
	},
}

func init() {
	depthCmd.Flags().StringVarP(&depthChunkSize, "chunk-size", "c", "10000", "Chunk size in bases")
	depthCmd.Flags().IntVarP(&depthThreads, "threads", "t", 0, "Number of worker threads (0 = auto-detect)")
	depthCmd.Flags().BoolVar(&depthMeanOnly, "mean", false, "Print only the mean depth and covered bases")
}
