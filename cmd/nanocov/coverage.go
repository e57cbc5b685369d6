package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scttfrdmn/nanocov-go/pkg/bam"
	"github.com/scttfrdmn/nanocov-go/pkg/bed"
	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
	"github.com/scttfrdmn/nanocov-go/pkg/output"
	"github.com/scttfrdmn/nanocov-go/pkg/plot"
	"github.com/scttfrdmn/nanocov-go/pkg/report"
)

var (
	inputPath      string
	bedPath        string
	chromBedPath   string
	threads        int
	outputPath     string
	chunkSizeStr   string
	forceStreaming bool
	memoryLimitStr string
	showConfig     bool

	noPlots     bool
	noMultiPlot bool
	logScale    bool
	showZeros   bool
	svgOutput   bool
	themeName   string

	craminoEnabled bool
	craminoPath    string
	genomeSize     uint64
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&inputPath, "input", "i", "", "Input BAM file (indexed)")
	flags.StringVarP(&bedPath, "bed", "b", "", "BED file with regions to include (chrom, start, end)")
	flags.StringVar(&chromBedPath, "chrom-bed", "", "BED file with full chromosome ranges, also used as plot range")
	flags.IntVarP(&threads, "threads", "t", 0, "Number of worker threads (0 = auto-detect performance cores)")
	flags.StringVarP(&outputPath, "output", "o", "coverage.tsv",
		"Output table (.gz/.zst to compress, s3://bucket/key to upload)")
	flags.StringVarP(&chunkSizeStr, "chunk-size", "c", "10000", "Chunk size in bases: 10000, 50K, 1M")
	flags.BoolVar(&forceStreaming, "streaming", false, "Force streaming mode (one chromosome at a time)")
	flags.StringVar(&memoryLimitStr, "memory-limit", "500",
		"Input size in MB above which streaming mode is used (or 512M, 2G)")
	flags.BoolVar(&showConfig, "show-config", false, "Show effective configuration")

	flags.BoolVar(&noPlots, "no-plots", false, "Skip all plots (table only)")
	flags.BoolVar(&noMultiPlot, "no-multi-plot", false, "Skip the multi-chromosome overview plot")
	flags.BoolVar(&logScale, "log-scale", false, "Use a logarithmic scale for the overview plot")
	flags.BoolVar(&showZeros, "show-zeros", false, "Show bins without coverage in plots")
	flags.BoolVar(&svgOutput, "svg", false, "Write plots as SVG instead of PNG")
	flags.StringVar(&themeName, "theme", "latte", "Plot theme: latte, frappe, nord, gruvbox")

	flags.BoolVar(&craminoEnabled, "cramino", false, "Write a cramino-style summary")
	flags.StringVar(&craminoPath, "cramino-output", "", "Cramino summary path (default: <input>.cramino)")
	flags.Uint64Var(&genomeSize, "genome-size", 0, "Genome size in bases for the cramino mean coverage")
}

// buildConfig turns the flags into a validated engine configuration
func buildConfig() (*coverage.Config, error) {
	cfg := coverage.NewConfig()
	cfg.Input = inputPath
	cfg.IncludeBED = bedPath
	cfg.ChromBED = chromBedPath
	cfg.ForceStreaming = forceStreaming

	chunkSize, err := coverage.ParseBases(chunkSizeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid chunk size: %w", err)
	}
	cfg.ChunkSize = chunkSize

	if threads < 0 {
		return nil, fmt.Errorf("threads must be >= 1")
	}
	if threads > 0 {
		cfg.Workers = threads
	}

	limit, err := coverage.ParseMemoryLimit(memoryLimitStr)
	if err != nil {
		return nil, err
	}
	cfg.MemoryLimit = limit

	if showConfig {
		cfg.ShowConfig(os.Stdout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRegions(path string) (coverage.Regions, error) {
	if path == "" {
		return nil, nil
	}
	regions, err := bed.ParseRegions(path)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, intervals := range regions {
		n += len(intervals)
	}
	log.WithFields(logrus.Fields{"file": path, "regions": n}).Info("loaded regions")
	return regions, nil
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	theme, err := plot.ThemeByName(themeName)
	if err != nil {
		return err
	}

	include, err := loadRegions(cfg.IncludeBED)
	if err != nil {
		return err
	}
	extents, err := loadRegions(cfg.ChromBED)
	if err != nil {
		return err
	}

	catalog, err := bam.ReadCatalog(cfg.Input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, name := output.SplitOutput(outputPath)
	storage, err := output.NewStorage(ctx, base)
	if err != nil {
		return err
	}
	table, err := output.NewTSVWriter(storage, name)
	if err != nil {
		return err
	}

	sinks := coverage.Sinks{table}
	var collector *plot.Collector
	if !noPlots {
		collector = plot.NewCollector(plot.Windows(extents, include), showZeros)
		sinks = append(sinks, collector)
	}

	engine, err := coverage.NewEngine(cfg, catalog, bam.Opener(cfg.Input, cfg.IndexPath), log)
	if err != nil {
		table.Close()
		return err
	}
	engine.Include = include
	engine.Extents = extents

	result, err := engine.Run(ctx, sinks)
	if err != nil {
		table.Close()
		return err
	}
	if err := table.Close(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"output": storage.Location(name),
		"rows":   table.Rows(),
	}).Info("coverage table written")

	report.WriteSummary(os.Stdout, result.Summary)

	if collector != nil {
		opts := plot.Options{
			Theme:      theme,
			Format:     "png",
			LogScale:   logScale,
			MultiChrom: !noMultiPlot,
		}
		if svgOutput {
			opts.Format = "svg"
		}
		names, err := collector.Render(storage, plotStem(name), opts)
		if err != nil {
			return err
		}
		log.WithField("plots", len(names)).Info("plots written")
	}

	if craminoEnabled {
		if err := writeCramino(ctx, cfg.Input, result.Summary); err != nil {
			return err
		}
	}
	return nil
}

// plotStem strips compression and table extensions from the output name
func plotStem(name string) string {
	for _, ext := range []string{".gz", ".zst", ".tsv", ".txt"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func writeCramino(ctx context.Context, input string, summary coverage.Summary) error {
	rs, err := bam.CollectReadStats(input)
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}
	c := report.NewCramino(input, rs, summary.GlobalMean, genomeSize)
	c.RunID = runID

	dest := craminoPath
	if dest == "" {
		dest = report.DefaultCraminoPath(input)
	}
	base, name := output.SplitOutput(dest)
	storage, err := output.NewStorage(ctx, base)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(name, []byte(c.String())); err != nil {
		return fmt.Errorf("failed to write cramino summary: %w", err)
	}
	log.WithField("output", storage.Location(name)).Info("cramino summary written")
	return nil
}
