package coverage

import (
	"math/rand"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naiveDepths counts every record base by base over [start, end)
func naiveDepths(records []*sam.Record, chrom string, start, end uint32) Depths {
	depths := make(Depths)
	for _, rec := range records {
		from, span, ok := alignmentWindow(rec, chrom)
		if !ok {
			continue
		}
		for pos := from; pos < from+uint64(span); pos++ {
			if pos >= uint64(start) && pos < uint64(end) {
				depths.Add(uint32(pos), 1)
			}
		}
	}
	return depths
}

func TestProcessChunkReferenceSpan(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	rec := newRecord(ref, 100,
		match(5),
		sam.NewCigarOp(sam.CigarInsertion, 3),
		match(4),
		sam.NewCigarOp(sam.CigarSoftClipped, 2),
	)
	store := &fakeStore{records: []*sam.Record{rec}}

	p := ProcessChunk(store, Chunk{Chromosome: "chr1", Start: 1, End: 1001})
	require.NoError(t, p.Err)

	want := make(Depths)
	for pos := uint32(100); pos < 109; pos++ {
		want[pos] = 1
	}
	assert.Equal(t, want, p.Depths)
}

func TestProcessChunkSplitsAcrossChunks(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	store := &fakeStore{records: []*sam.Record{newRecord(ref, 500, match(21))}}

	chunks, err := PlanChunks(Catalog{{Name: "chr1", Length: 1000}}, nil, nil, 300)
	require.NoError(t, err)

	for _, c := range chunks {
		p := ProcessChunk(store, c)
		require.NoError(t, p.Err)
		if c.Start != 301 {
			assert.Empty(t, p.Depths, "chunk %s", c)
			continue
		}
		assert.Len(t, p.Depths, 21)
		for pos := uint32(500); pos <= 520; pos++ {
			assert.Equal(t, uint32(1), p.Depths[pos], "position %d", pos)
		}
	}
}

func TestProcessChunkClipsToChunk(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	store := &fakeStore{records: []*sam.Record{
		newRecord(ref, 90, match(20)),  // 90..109, straddles the start
		newRecord(ref, 195, match(10)), // 195..204, straddles the end
		newRecord(ref, 10, match(50)),  // entirely before
		newRecord(ref, 200, match(5)),  // starts at the exclusive end
	}}

	p := ProcessChunk(store, Chunk{Chromosome: "chr1", Start: 100, End: 200})
	require.NoError(t, p.Err)

	want := make(Depths)
	for pos := uint32(100); pos < 110; pos++ {
		want[pos] = 1
	}
	for pos := uint32(195); pos < 200; pos++ {
		want[pos] = 1
	}
	assert.Equal(t, want, p.Depths)
}

func TestProcessChunkSkipsUnusableRecords(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	other := newRef(t, "chr2", 1000)

	unmapped := newRecord(ref, 10, match(10))
	unmapped.Flags = sam.Unmapped
	noPos := newRecord(ref, 0, match(10)) // Pos -1
	noRef := newRecord(nil, 10, match(10))
	clipped := newRecord(ref, 10, sam.NewCigarOp(sam.CigarSoftClipped, 10))
	wrongRef := newRecord(other, 10, match(10))
	good := newRecord(ref, 20, match(2))

	store := &fakeStore{
		records:    []*sam.Record{unmapped, noPos, noRef, clipped, wrongRef, good},
		unfiltered: true,
	}
	p := ProcessChunk(store, Chunk{Chromosome: "chr1", Start: 1, End: 100})
	require.NoError(t, p.Err)
	assert.Equal(t, Depths{20: 1, 21: 1}, p.Depths)
}

func TestProcessChunkLongSpansMatchNaiveCounting(t *testing.T) {
	ref := newRef(t, "chr1", 100000)
	rng := rand.New(rand.NewSource(7))

	var records []*sam.Record
	for i := 0; i < 300; i++ {
		pos := 1 + rng.Intn(20000)
		var ops []sam.CigarOp
		switch i % 3 {
		case 0:
			ops = []sam.CigarOp{match(1 + rng.Intn(900))}
		case 1:
			ops = []sam.CigarOp{match(1000 + rng.Intn(4000))}
		default:
			ops = []sam.CigarOp{
				match(500 + rng.Intn(500)),
				sam.NewCigarOp(sam.CigarDeletion, 1+rng.Intn(50)),
				sam.NewCigarOp(sam.CigarInsertion, 1+rng.Intn(50)),
				match(600 + rng.Intn(600)),
			}
		}
		records = append(records, newRecord(ref, pos, ops...))
	}
	store := &fakeStore{records: records}

	chunk := Chunk{Chromosome: "chr1", Start: 5001, End: 15001}
	p := ProcessChunk(store, chunk)
	require.NoError(t, p.Err)
	assert.Equal(t, naiveDepths(records, "chr1", chunk.Start, chunk.End), p.Depths)
}

func TestProcessChunkExactlyAtDirectLimit(t *testing.T) {
	ref := newRef(t, "chr1", 10000)
	store := &fakeStore{records: []*sam.Record{
		newRecord(ref, 1, match(directSpanLimit)),
		newRecord(ref, 1, match(directSpanLimit+1)),
	}}
	chunk := Chunk{Chromosome: "chr1", Start: 1, End: 5000}

	p := ProcessChunk(store, chunk)
	require.NoError(t, p.Err)
	assert.Equal(t, uint32(2), p.Depths[directSpanLimit])
	assert.Equal(t, uint32(1), p.Depths[directSpanLimit+1])
	assert.NotContains(t, p.Depths, uint32(directSpanLimit+2))
}

func TestProcessChunkIsIdempotent(t *testing.T) {
	ref := newRef(t, "chr1", 10000)
	var records []*sam.Record
	for i := 0; i < 50; i++ {
		records = append(records, newRecord(ref, 1+i*37, match(100+i*40)))
	}
	store := &fakeStore{records: records}
	chunk := Chunk{Chromosome: "chr1", Start: 1, End: 2001}

	first := ProcessChunk(store, chunk)
	second := ProcessChunk(store, chunk)
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Depths, second.Depths)
	assert.NotEmpty(t, first.Depths)
}

func TestProcessChunkQueryFailure(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	store := &fakeStore{
		records:    []*sam.Record{newRecord(ref, 10, match(10))},
		failStarts: map[uint32]bool{1: true},
	}

	p := ProcessChunk(store, Chunk{Chromosome: "chr1", Start: 1, End: 100})
	assert.ErrorIs(t, p.Err, errBrokenIndex)
	assert.Contains(t, p.Err.Error(), "chr1:1-100")
	assert.NotNil(t, p.Depths)
	assert.Empty(t, p.Depths)
}

func TestProcessChunkIterationFailure(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	store := &fakeStore{
		records:    []*sam.Record{newRecord(ref, 10, match(10))},
		iterStarts: map[uint32]bool{1: true},
	}

	p := ProcessChunk(store, Chunk{Chromosome: "chr1", Start: 1, End: 100})
	assert.Error(t, p.Err)
	assert.Empty(t, p.Depths)
	assert.Equal(t, int32(0), store.inUse, "iterator left open")
}
