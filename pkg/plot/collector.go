package plot

import (
	"github.com/scttfrdmn/nanocov-go/pkg/bed"
	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
)

// Windows derives the plot window of each chromosome from the region
// files: the chromosome extent BED wins over the inclusion BED. Windows
// are 1-based and end exclusive.
func Windows(extents, include coverage.Regions) map[string]coverage.Interval {
	windows := make(map[string]coverage.Interval)
	for _, regions := range []coverage.Regions{include, extents} {
		for chrom, intervals := range regions {
			start, end, ok := bed.Extent(intervals)
			if !ok || start >= end || end == ^uint32(0) {
				continue
			}
			windows[chrom] = coverage.Interval{Start: start + 1, End: end + 1}
		}
	}
	return windows
}

// Collector keeps the binned series and mean depth of every chromosome it
// is given, so the full depth maps can be dropped after each chromosome.
// It implements coverage.Sink.
type Collector struct {
	windows   map[string]coverage.Interval
	showZeros bool
	series    map[string]Series
	means     map[string]float64
}

// NewCollector creates a collector. Chromosomes without a window are
// plotted over their covered range.
func NewCollector(windows map[string]coverage.Interval, showZeros bool) *Collector {
	if windows == nil {
		windows = make(map[string]coverage.Interval)
	}
	return &Collector{
		windows:   windows,
		showZeros: showZeros,
		series:    make(map[string]Series),
		means:     make(map[string]float64),
	}
}

// WriteChromosome bins the depths of chrom
func (c *Collector) WriteChromosome(chrom string, depths coverage.Depths) error {
	mean, ok := coverage.MeanDepth(depths)
	if !ok {
		return nil
	}
	c.means[chrom] = mean

	window, ok := c.windows[chrom]
	if !ok {
		window, _ = CoveredWindow(depths)
	}
	c.series[chrom] = Bin(chrom, depths, window, c.showZeros)
	return nil
}

// Series returns the binned series of chrom
func (c *Collector) Series(chrom string) (Series, bool) {
	s, ok := c.series[chrom]
	return s, ok
}

// Means returns the mean depth of every collected chromosome
func (c *Collector) Means() map[string]float64 {
	return c.means
}
