package coverage

import "sort"

// ChromosomeSummary holds the per-chromosome figures reported after a run
type ChromosomeSummary struct {
	CoveredBases int     // positions with depth >= 1
	TotalDepth   uint64  // sum of depth over covered positions
	MeanDepth    float64 // TotalDepth / CoveredBases
}

// Summary describes a finished run. Only successfully processed chunks
// contribute to it.
type Summary struct {
	PerChromosome   map[string]ChromosomeSummary
	GlobalMean      float64 // mean of per-chromosome means, valid when HasData
	HasData         bool
	ChunksProcessed int
	ChunksFailed    int
}

// Merger folds partial results into a single coverage map. Folding is
// commutative and associative, so the order in which partials arrive does
// not change the result. A Merger is not safe for concurrent use; it is
// owned by a single collector.
type Merger struct {
	coverage  Map
	processed int
	failed    int
}

// NewMerger creates an empty merger
func NewMerger() *Merger {
	return &Merger{coverage: make(Map)}
}

// Add folds one partial result. Failed partials are counted and ignored.
func (m *Merger) Add(p Partial) {
	if p.Err != nil {
		m.failed++
		return
	}
	m.processed++
	if len(p.Depths) == 0 {
		return
	}
	dst, ok := m.coverage[p.Chunk.Chromosome]
	if !ok {
		dst = make(Depths, len(p.Depths))
		m.coverage[p.Chunk.Chromosome] = dst
	}
	for pos, n := range p.Depths {
		dst.Add(pos, n)
	}
}

// Map returns the merged coverage
func (m *Merger) Map() Map {
	return m.coverage
}

// Take returns the merged depths of chrom and forgets them
func (m *Merger) Take(chrom string) Depths {
	depths := m.coverage[chrom]
	delete(m.coverage, chrom)
	return depths
}

// Means returns the mean depth of every covered chromosome
func (m *Merger) Means() map[string]float64 {
	means := make(map[string]float64, len(m.coverage))
	for chrom, depths := range m.coverage {
		if mean, ok := MeanDepth(depths); ok {
			means[chrom] = mean
		}
	}
	return means
}

// GlobalMean returns the mean of the per-chromosome means. ok is false
// when nothing was covered.
func (m *Merger) GlobalMean() (mean float64, ok bool) {
	s := m.Summary()
	return s.GlobalMean, s.HasData
}

// Counts returns the number of processed and failed chunks
func (m *Merger) Counts() (processed, failed int) {
	return m.processed, m.failed
}

// Summary computes the per-chromosome and global means of the merged map
func (m *Merger) Summary() Summary {
	s := NewSummary()
	for chrom, depths := range m.coverage {
		s.Record(chrom, depths)
	}
	s.ChunksProcessed = m.processed
	s.ChunksFailed = m.failed
	s.Finish()
	return s
}

// NewSummary creates an empty summary
func NewSummary() Summary {
	return Summary{PerChromosome: make(map[string]ChromosomeSummary)}
}

// Record adds the figures of one chromosome. Chromosomes without covered
// positions are not recorded. Call Finish once every chromosome is in.
func (s *Summary) Record(chrom string, depths Depths) {
	if len(depths) == 0 {
		return
	}
	var total uint64
	for _, n := range depths {
		total += uint64(n)
	}
	s.PerChromosome[chrom] = ChromosomeSummary{
		CoveredBases: len(depths),
		TotalDepth:   total,
		MeanDepth:    float64(total) / float64(len(depths)),
	}
}

// Finish computes the global mean. The global mean is the plain mean of
// the per-chromosome means, not weighted by chromosome length or covered
// bases. Means are summed in chromosome order so the result does not
// depend on map iteration.
func (s *Summary) Finish() {
	if len(s.PerChromosome) == 0 {
		s.GlobalMean, s.HasData = 0, false
		return
	}
	var sum float64
	for _, chrom := range s.Chromosomes() {
		sum += s.PerChromosome[chrom].MeanDepth
	}
	s.GlobalMean = sum / float64(len(s.PerChromosome))
	s.HasData = true
}

// Chromosomes returns the summarized chromosome names in sorted order
func (s Summary) Chromosomes() []string {
	names := make([]string, 0, len(s.PerChromosome))
	for name := range s.PerChromosome {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Means returns the mean depth of every covered chromosome
func (s Summary) Means() map[string]float64 {
	means := make(map[string]float64, len(s.PerChromosome))
	for chrom, cs := range s.PerChromosome {
		means[chrom] = cs.MeanDepth
	}
	return means
}

// MeanDepth returns the mean depth over covered positions; ok is false
// when depths is empty.
func MeanDepth(depths Depths) (mean float64, ok bool) {
	if len(depths) == 0 {
		return 0, false
	}
	var total uint64
	for _, n := range depths {
		total += uint64(n)
	}
	return float64(total) / float64(len(depths)), true
}

// MergeMaps adds every depth of src into dst
func MergeMaps(dst, src Map) {
	for chrom, depths := range src {
		d, ok := dst[chrom]
		if !ok {
			d = make(Depths, len(depths))
			dst[chrom] = d
		}
		for pos, n := range depths {
			d.Add(pos, n)
		}
	}
}
