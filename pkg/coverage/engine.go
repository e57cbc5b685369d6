package coverage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink receives the merged depths of each covered chromosome, in
// chromosome name order.
type Sink interface {
	WriteChromosome(chrom string, depths Depths) error
}

// Sinks fans one chromosome out to several sinks
type Sinks []Sink

// WriteChromosome writes to every sink in order and stops at the first error
func (s Sinks) WriteChromosome(chrom string, depths Depths) error {
	for _, sink := range s {
		if err := sink.WriteChromosome(chrom, depths); err != nil {
			return err
		}
	}
	return nil
}

// Result is the outcome of a run
type Result struct {
	Mode    Mode
	Summary Summary
	Map     Map // merged coverage; nil in streaming mode
}

// Engine computes coverage for one indexed alignment file
type Engine struct {
	Config  *Config
	Catalog Catalog
	Include Regions // inclusion BED, nil when absent
	Extents Regions // chromosome extent BED, nil when absent
	Open    Opener
	Logger  *logrus.Entry
}

// NewEngine creates an engine. The config must already be validated;
// NewEngine only rejects values that would make planning impossible.
func NewEngine(cfg *Config, catalog Catalog, open Opener, logger *logrus.Entry) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cfg.ChunkSize == 0 {
		return nil, ErrInvalidChunkSize
	}
	if open == nil {
		return nil, fmt.Errorf("no store opener")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		Config:  cfg,
		Catalog: catalog,
		Open:    open,
		Logger:  logger,
	}, nil
}

// Run selects the execution mode from the input size and runs it
func (e *Engine) Run(ctx context.Context, sink Sink) (*Result, error) {
	info, err := os.Stat(e.Config.Input)
	if err != nil {
		return nil, fmt.Errorf("cannot stat input: %w", err)
	}

	mode := SelectMode(*e.Config, info.Size())
	e.Logger.WithFields(logrus.Fields{
		"mode":       mode.String(),
		"input_size": info.Size(),
		"limit":      e.Config.MemoryLimit,
	}).Info("selected execution mode")

	if mode == ModeStreaming {
		return e.RunStreaming(ctx, sink)
	}
	return e.RunParallel(ctx, sink)
}

// RunParallel plans every chunk, processes them across the worker pool,
// merges all partials and only then writes the chromosomes.
func (e *Engine) RunParallel(ctx context.Context, sink Sink) (*Result, error) {
	start := time.Now()

	chunks, err := PlanChunks(e.Catalog, e.Include, e.Extents, e.Config.ChunkSize)
	if err != nil {
		return nil, err
	}
	e.Logger.WithFields(logrus.Fields{
		"chunks":  len(chunks),
		"workers": e.Config.Workers,
	}).Info("processing chunks")

	merger := NewMerger()
	if err := runChunks(ctx, chunks, e.Config.Workers, e.Open, merger, e.Logger); err != nil {
		return nil, err
	}

	coverage := merger.Map()
	for _, chrom := range coverage.Chromosomes() {
		if err := e.emit(sink, chrom, coverage[chrom]); err != nil {
			return nil, err
		}
	}

	summary := merger.Summary()
	e.logSummary(summary, time.Since(start))
	return &Result{Mode: ModeParallel, Summary: summary, Map: coverage}, nil
}

// RunStreaming processes one chromosome at a time in name order. Each
// chromosome's chunks still run across the worker pool; its depths are
// written and dropped before the next chromosome starts.
func (e *Engine) RunStreaming(ctx context.Context, sink Sink) (*Result, error) {
	start := time.Now()
	summary := NewSummary()

	for _, ref := range e.Catalog.SortedByName() {
		chunks, err := PlanChromosome(ref, e.Include, e.Extents, e.Config.ChunkSize)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			continue
		}
		e.Logger.WithFields(logrus.Fields{
			"chromosome": ref.Name,
			"chunks":     len(chunks),
		}).Debug("streaming chromosome")

		merger := NewMerger()
		if err := runChunks(ctx, chunks, e.Config.Workers, e.Open, merger, e.Logger); err != nil {
			return nil, err
		}

		processed, failed := merger.Counts()
		summary.ChunksProcessed += processed
		summary.ChunksFailed += failed

		depths := merger.Take(ref.Name)
		if len(depths) == 0 {
			continue
		}
		summary.Record(ref.Name, depths)
		if err := e.emit(sink, ref.Name, depths); err != nil {
			return nil, err
		}
	}

	summary.Finish()
	e.logSummary(summary, time.Since(start))
	return &Result{Mode: ModeStreaming, Summary: summary}, nil
}

func (e *Engine) emit(sink Sink, chrom string, depths Depths) error {
	if sink == nil {
		return nil
	}
	if err := sink.WriteChromosome(chrom, depths); err != nil {
		return fmt.Errorf("write %s: %w", chrom, err)
	}
	return nil
}

func (e *Engine) logSummary(s Summary, elapsed time.Duration) {
	for _, chrom := range s.Chromosomes() {
		e.Logger.WithFields(logrus.Fields{
			"chromosome": chrom,
			"mean":       s.PerChromosome[chrom].MeanDepth,
			"covered":    s.PerChromosome[chrom].CoveredBases,
		}).Info("chromosome coverage")
	}
	fields := logrus.Fields{
		"processed": s.ChunksProcessed,
		"failed":    s.ChunksFailed,
		"elapsed":   elapsed.Round(time.Millisecond).String(),
	}
	if s.ChunksFailed > 0 {
		e.Logger.WithFields(fields).Warn("finished with failed chunks")
		return
	}
	e.Logger.WithFields(fields).Info("finished")
}
