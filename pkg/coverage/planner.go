package coverage

import "math"

// DefaultChunkSize is the default chunk width in bases
const DefaultChunkSize = 10000

// PlanChunks divides the catalog into chunks of at most chunkSize bases.
//
// When include is non-nil only its regions are planned and chromosomes
// without regions are skipped. Otherwise, when extents is non-nil, the
// listed chromosome extents are planned. With neither, every chromosome is
// planned over [1, length+1). Region intervals are BED coordinates and are
// shifted to 1-based positions.
func PlanChunks(catalog Catalog, include, extents Regions, chunkSize uint32) ([]Chunk, error) {
	if chunkSize == 0 {
		return nil, ErrInvalidChunkSize
	}

	var chunks []Chunk
	for _, ref := range catalog {
		refChunks, err := PlanChromosome(ref, include, extents, chunkSize)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, refChunks...)
	}
	return chunks, nil
}

// PlanChromosome plans the chunks of a single reference.
func PlanChromosome(ref Reference, include, extents Regions, chunkSize uint32) ([]Chunk, error) {
	if chunkSize == 0 {
		return nil, ErrInvalidChunkSize
	}

	var windows []Interval
	switch {
	case include != nil:
		windows = bedToWindows(include[ref.Name])
	case extents != nil:
		windows = bedToWindows(extents[ref.Name])
	default:
		if ref.Length > 0 {
			end := ref.Length + 1
			if ref.Length == math.MaxUint32 {
				// the last base is not addressable with an exclusive uint32 end
				end = math.MaxUint32
			}
			windows = []Interval{{Start: 1, End: end}}
		}
	}

	var chunks []Chunk
	for _, w := range windows {
		// uint64 so that start+chunkSize cannot wrap near MaxUint32
		for start := uint64(w.Start); start < uint64(w.End); {
			end := start + uint64(chunkSize)
			if end > uint64(w.End) {
				end = uint64(w.End)
			}
			chunk := Chunk{
				Chromosome: ref.Name,
				Start:      uint32(start),
				End:        uint32(end),
			}
			if include != nil {
				chunk.TargetRegions = []Interval{{Start: chunk.Start, End: chunk.End}}
			}
			chunks = append(chunks, chunk)
			start = end
		}
	}
	return chunks, nil
}

// bedToWindows converts 0-based half-open BED intervals to 1-based
// half-open windows, dropping empty ones.
func bedToWindows(intervals []Interval) []Interval {
	windows := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Start >= iv.End || iv.End == math.MaxUint32 {
			continue
		}
		windows = append(windows, Interval{Start: iv.Start + 1, End: iv.End + 1})
	}
	return windows
}
