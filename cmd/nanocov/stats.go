package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/nanocov-go/pkg/bam"
	"github.com/scttfrdmn/nanocov-go/pkg/report"
)

var (
	statsGenomeSize uint64
	statsCramino    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <input.bam>",
	Short: "Show read length and quality statistics for a BAM file",
	Long: `Display read statistics for a BAM file: read and base counts, N50/N75,
read length and base quality. The whole file is scanned; no index is
needed.

Examples:
  nanocov stats sample.bam
  nanocov stats sample.bam --cramino --genome-size 3100000000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bamPath := args[0]

		rs, err := bam.CollectReadStats(bamPath)
		if err != nil {
			return err
		}

		if statsCramino {
			c := report.NewCramino(bamPath, rs, 0, statsGenomeSize)
			c.RunID = runID
			_, err := c.WriteTo(os.Stdout)
			return err
		}

		fmt.Println("===========================================")
		fmt.Println("Read Statistics")
		fmt.Println("===========================================")
		fmt.Println()
		fmt.Printf("File: %s\n", bamPath)
		fmt.Println()
		fmt.Printf("  Alignments: %d\n", rs.NumAlignments)
		fmt.Printf("  Reads: %d\n", rs.NumReads)
		fmt.Printf("  Bases: %d\n", rs.NumBases)
		fmt.Printf("  Bases in reads >25kb: %d\n", rs.LongBases)
		fmt.Println()
		fmt.Println("Read length:")
		fmt.Printf("  N50: %d\n", rs.N50)
		fmt.Printf("  N75: %d\n", rs.N75)
		fmt.Printf("  Mean: %.0f\n", rs.MeanLength)
		fmt.Printf("  Median: %.0f\n", rs.MedianLength)
		fmt.Println()
		fmt.Println("Base quality:")
		fmt.Printf("  Mean: %.2f\n", rs.MeanQual)
		fmt.Printf("  Median: %.2f\n", rs.MedianQual)
		if statsGenomeSize > 0 {
			fmt.Println()
			fmt.Printf("Mean coverage: %.2fx\n", float64(rs.NumBases)/float64(statsGenomeSize))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Uint64Var(&statsGenomeSize, "genome-size", 0, "Genome size in bases for mean coverage")
	statsCmd.Flags().BoolVar(&statsCramino, "cramino", false, "Print a cramino-style summary")
}
