package bam

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"gonum.org/v1/gonum/stat"
)

// LongReadThreshold is the read length above which bases count toward the
// long-read yield
const LongReadThreshold = 25000

// ReadStats summarizes read lengths and base qualities of a BAM file.
// Secondary and supplementary alignments are counted as alignments but do
// not contribute reads or bases.
type ReadStats struct {
	NumAlignments uint64
	NumReads      uint64
	NumBases      uint64
	LongBases     uint64 // bases in reads longer than LongReadThreshold

	N50          uint32
	N75          uint32
	MeanLength   float64
	MedianLength float64
	MeanQual     float64 // mean of per-read mean Phred quality
	MedianQual   float64

	Lengths []uint32 // primary read lengths, longest first
}

// CollectReadStats scans every record of the BAM file
func CollectReadStats(bamPath string) (*ReadStats, error) {
	f, err := os.Open(bamPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open BAM file: %w", err)
	}
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create BAM reader: %w", err)
	}
	defer br.Close()

	acc := newStatsAccumulator()
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read BAM record: %w", err)
		}
		acc.add(rec)
	}
	return acc.finish(), nil
}

type statsAccumulator struct {
	alignments uint64
	lengths    []uint32
	quals      []float64
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{}
}

func (a *statsAccumulator) add(rec *sam.Record) {
	a.alignments++
	if rec.Flags&(sam.Secondary|sam.Supplementary) != 0 {
		return
	}
	a.lengths = append(a.lengths, uint32(rec.Seq.Length))

	if q, ok := meanQuality(rec.Qual); ok {
		a.quals = append(a.quals, q)
	}
}

// meanQuality averages Phred scores; a missing quality string is stored
// as 0xff bytes.
func meanQuality(qual []byte) (float64, bool) {
	if len(qual) == 0 || qual[0] == 0xff {
		return 0, false
	}
	var sum uint64
	for _, q := range qual {
		sum += uint64(q)
	}
	return float64(sum) / float64(len(qual)), true
}

func (a *statsAccumulator) finish() *ReadStats {
	rs := &ReadStats{
		NumAlignments: a.alignments,
		NumReads:      uint64(len(a.lengths)),
		Lengths:       a.lengths,
	}

	sort.Slice(rs.Lengths, func(i, j int) bool { return rs.Lengths[i] > rs.Lengths[j] })
	for _, l := range rs.Lengths {
		rs.NumBases += uint64(l)
		if l > LongReadThreshold {
			rs.LongBases += uint64(l)
		}
	}
	rs.N50 = nx(rs.Lengths, rs.NumBases, 1, 2)
	rs.N75 = nx(rs.Lengths, rs.NumBases, 3, 4)

	if len(rs.Lengths) > 0 {
		lengths := make([]float64, len(rs.Lengths))
		for i, l := range rs.Lengths {
			lengths[i] = float64(l)
		}
		rs.MeanLength = stat.Mean(lengths, nil)
		rs.MedianLength = median(lengths)
	}
	if len(a.quals) > 0 {
		rs.MeanQual = stat.Mean(a.quals, nil)
		rs.MedianQual = median(a.quals)
	}
	return rs
}

// nx returns the length L such that reads of length >= L hold at least
// num/den of all bases. lengths must be sorted longest first.
func nx(lengths []uint32, total uint64, num, den uint64) uint32 {
	target := total * num / den
	var acc uint64
	for _, l := range lengths {
		acc += uint64(l)
		if acc >= target {
			return l
		}
	}
	return 0
}

// median returns the middle value, averaging the two middle values of an
// even-sized sample. values is sorted in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}
