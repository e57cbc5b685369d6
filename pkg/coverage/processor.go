package coverage

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// directSpanLimit is the longest clipped span counted base by base; longer
// spans go through the difference buffer.
const directSpanLimit = 1000

// RecordIterator iterates over the alignments returned by a region query.
// *bam.Iterator from biogo/hts satisfies it.
type RecordIterator interface {
	Next() bool
	Record() *sam.Record
	Error() error
	Close() error
}

// Store is an indexed alignment file opened for region queries. A Store is
// used by one goroutine at a time.
type Store interface {
	// Query returns the records overlapping the 1-based window [start, end)
	Query(chrom string, start, end uint32) (RecordIterator, error)

	// Close releases the file and index handles
	Close() error
}

// Opener opens a new, independent Store handle
type Opener func() (Store, error)

// ProcessChunk queries the store for the chunk window and accumulates the
// depth of every qualifying alignment, clipped to the chunk. On failure
// the returned Partial carries the error and no depths.
func ProcessChunk(store Store, chunk Chunk) Partial {
	depths, err := accumulate(store, chunk)
	if err != nil {
		return Partial{Chunk: chunk, Depths: Depths{}, Err: err}
	}
	return Partial{Chunk: chunk, Depths: depths}
}

func accumulate(store Store, chunk Chunk) (Depths, error) {
	if chunk.End <= chunk.Start {
		return Depths{}, nil
	}

	it, err := store.Query(chunk.Chromosome, chunk.Start, chunk.End)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", chunk, err)
	}

	acc := newAccumulator(chunk)
	for it.Next() {
		rec := it.Record()
		start, span, ok := alignmentWindow(rec, chunk.Chromosome)
		if !ok {
			continue
		}
		acc.add(start, start+uint64(span))
	}
	if err := it.Error(); err != nil {
		it.Close()
		return nil, fmt.Errorf("read %s: %w", chunk, err)
	}
	if err := it.Close(); err != nil {
		return nil, fmt.Errorf("close query %s: %w", chunk, err)
	}

	return acc.depths(), nil
}

// alignmentWindow returns the 1-based start and reference span of a
// record, or ok=false for records that must be skipped.
func alignmentWindow(rec *sam.Record, chrom string) (start uint64, span uint32, ok bool) {
	if rec == nil || rec.Flags&sam.Unmapped != 0 {
		return 0, 0, false
	}
	if rec.Ref == nil || rec.Pos < 0 || rec.Ref.Name() != chrom {
		return 0, 0, false
	}
	span = ReferenceSpan(rec.Cigar)
	if span == 0 {
		return 0, 0, false
	}
	return uint64(rec.Pos) + 1, span, true
}

// accumulator counts depth over a single chunk window. Short spans are
// added directly into counts, long spans as +1/-1 edges in delta; the two
// buffers are combined when the chunk is finished.
type accumulator struct {
	chunk  Chunk
	counts []uint32
	delta  []int64 // len(counts)+1; nil until a long span is seen
}

func newAccumulator(chunk Chunk) *accumulator {
	return &accumulator{
		chunk:  chunk,
		counts: make([]uint32, chunk.Len()),
	}
}

// add records one alignment covering the 1-based range [start, end)
func (a *accumulator) add(start, end uint64) {
	lo, hi := uint64(a.chunk.Start), uint64(a.chunk.End)
	if start < lo {
		start = lo
	}
	if end > hi {
		end = hi
	}
	if start >= end {
		return
	}

	from, to := start-lo, end-lo
	if to-from <= directSpanLimit {
		for i := from; i < to; i++ {
			a.counts[i] = saturatingAdd(a.counts[i], 1)
		}
		return
	}

	if a.delta == nil {
		a.delta = make([]int64, len(a.counts)+1)
	}
	a.delta[from]++
	a.delta[to]--
}

func (a *accumulator) depths() Depths {
	depths := make(Depths)
	var running int64
	for i, n := range a.counts {
		if a.delta != nil {
			running += a.delta[i]
		}
		total := n
		if running > 0 {
			if running > int64(^uint32(0)) {
				total = ^uint32(0)
			} else {
				total = saturatingAdd(n, uint32(running))
			}
		}
		if total > 0 {
			depths[a.chunk.Start+uint32(i)] = total
		}
	}
	return depths
}
