package coverage

import (
	"fmt"
	"math"
	"sort"
)

// Depths maps a 1-based reference position to the number of alignments
// covering it. Positions with zero depth are never stored.
type Depths map[uint32]uint32

// Map holds per-chromosome depths
type Map map[string]Depths

// Interval is a half-open range [Start, End)
type Interval struct {
	Start uint32
	End   uint32
}

// Len returns the number of bases in the interval
func (iv Interval) Len() uint32 {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Regions maps chromosome names to BED intervals (0-based, half-open).
type Regions map[string][]Interval

// Reference describes one sequence of the alignment header
type Reference struct {
	Name   string
	Length uint32
}

// Catalog lists the header references in file order
type Catalog []Reference

// Lookup returns the reference with the given name
func (c Catalog) Lookup(name string) (Reference, bool) {
	for _, ref := range c {
		if ref.Name == name {
			return ref, true
		}
	}
	return Reference{}, false
}

// SortedByName returns a copy of the catalog ordered by chromosome name
func (c Catalog) SortedByName() Catalog {
	sorted := make(Catalog, len(c))
	copy(sorted, c)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// Chunk is one unit of parallel work: a 1-based window [Start, End) on a
// single chromosome.
type Chunk struct {
	Chromosome    string
	Start         uint32
	End           uint32     // exclusive
	TargetRegions []Interval // set when planned from an inclusion BED
}

func (c Chunk) String() string {
	return fmt.Sprintf("%s:%d-%d", c.Chromosome, c.Start, c.End)
}

// Len returns the chunk width in bases
func (c Chunk) Len() uint32 {
	return c.End - c.Start
}

// Partial is the result of processing one chunk
type Partial struct {
	Chunk  Chunk
	Depths Depths
	Err    error // non-nil when the chunk failed; Depths is then empty
}

// Positions returns the covered positions in ascending order
func (d Depths) Positions() []uint32 {
	positions := make([]uint32, 0, len(d))
	for pos := range d {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	return positions
}

// Add increments the depth at pos by n, saturating at math.MaxUint32
func (d Depths) Add(pos, n uint32) {
	d[pos] = saturatingAdd(d[pos], n)
}

// Chromosomes returns the chromosome names in sorted order
func (m Map) Chromosomes() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func saturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
