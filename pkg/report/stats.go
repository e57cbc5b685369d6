// Package report summarizes coverage and reads for humans.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
)

// Stats describes the depth distribution over covered positions
type Stats struct {
	Positions int
	Mean      float64
	Median    float64
	Min       uint32
	Max       uint32
	StdDev    float64 // sample standard deviation
}

// CoverageStats computes Stats for one chromosome. ok is false when no
// position is covered.
func CoverageStats(depths coverage.Depths) (Stats, bool) {
	if len(depths) == 0 {
		return Stats{}, false
	}

	values := make([]float64, 0, len(depths))
	min, max := uint32(math.MaxUint32), uint32(0)
	for _, d := range depths {
		values = append(values, float64(d))
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	sort.Float64s(values)

	s := Stats{
		Positions: len(values),
		Min:       min,
		Max:       max,
	}
	s.Mean = stat.Mean(values, nil)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		s.Median = (values[mid-1] + values[mid]) / 2
	} else {
		s.Median = values[mid]
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s, true
}

// WriteSummary prints the per-chromosome and global mean coverage
func WriteSummary(w io.Writer, s coverage.Summary) {
	for _, chrom := range s.Chromosomes() {
		cs := s.PerChromosome[chrom]
		fmt.Fprintf(w, "Chromosome %s: mean coverage %.2f (%d positions covered)\n",
			chrom, cs.MeanDepth, cs.CoveredBases)
	}
	if !s.HasData {
		fmt.Fprintf(w, "Global average coverage: no data\n")
	} else {
		fmt.Fprintf(w, "Global average coverage: %.2f\n", s.GlobalMean)
	}
	if s.ChunksFailed > 0 {
		fmt.Fprintf(w, "Warning: %d of %d chunks failed and are not included\n",
			s.ChunksFailed, s.ChunksFailed+s.ChunksProcessed)
	}
}
