package plot

import (
	"sort"

	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
)

// Point is one bin: its first position and the mean depth of the covered
// positions inside it.
type Point struct {
	Pos   uint32
	Depth float64
}

// Series is the binned coverage of one chromosome over a plot window
type Series struct {
	Chromosome string
	Window     coverage.Interval // 1-based, end exclusive
	BinSize    uint32
	Points     []Point // ascending by Pos
}

// BinSize picks the bin width for a window of the given length
func BinSize(length uint32) uint32 {
	switch {
	case length > 10_000_000:
		return 100_000
	case length > 1_000_000:
		return 10_000
	case length > 100_000:
		return 1_000
	case length > 10_000:
		return 100
	}
	return 1
}

// Bin averages depths into bins over window. Bins without covered
// positions are omitted unless showZeros is set, in which case they are
// reported with depth 0.
func Bin(chrom string, depths coverage.Depths, window coverage.Interval, showZeros bool) Series {
	s := Series{
		Chromosome: chrom,
		Window:     window,
		BinSize:    BinSize(window.Len()),
	}
	if window.Len() == 0 {
		return s
	}

	type acc struct {
		sum uint64
		n   uint32
	}
	bins := make(map[uint32]*acc)
	for pos, depth := range depths {
		if pos < window.Start || pos >= window.End {
			continue
		}
		bin := (pos-window.Start)/s.BinSize*s.BinSize + window.Start
		a, ok := bins[bin]
		if !ok {
			a = &acc{}
			bins[bin] = a
		}
		a.sum += uint64(depth)
		a.n++
	}

	if showZeros {
		for bin := uint64(window.Start); bin < uint64(window.End); bin += uint64(s.BinSize) {
			if _, ok := bins[uint32(bin)]; !ok {
				bins[uint32(bin)] = &acc{}
			}
		}
	}

	s.Points = make([]Point, 0, len(bins))
	for bin, a := range bins {
		var mean float64
		if a.n > 0 {
			mean = float64(a.sum) / float64(a.n)
		}
		s.Points = append(s.Points, Point{Pos: bin, Depth: mean})
	}
	sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Pos < s.Points[j].Pos })
	return s
}

// CoveredWindow returns [min, max+1) over the covered positions
func CoveredWindow(depths coverage.Depths) (coverage.Interval, bool) {
	if len(depths) == 0 {
		return coverage.Interval{}, false
	}
	first := true
	var lo, hi uint32
	for pos := range depths {
		if first || pos < lo {
			lo = pos
		}
		if first || pos > hi {
			hi = pos
		}
		first = false
	}
	if hi == ^uint32(0) {
		return coverage.Interval{Start: lo, End: hi}, true
	}
	return coverage.Interval{Start: lo, End: hi + 1}, true
}
