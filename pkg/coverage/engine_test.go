package coverage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink renders rows the way the table writer does
type recordingSink struct {
	order []string
	rows  bytes.Buffer
}

func (s *recordingSink) WriteChromosome(chrom string, depths Depths) error {
	s.order = append(s.order, chrom)
	for _, pos := range depths.Positions() {
		fmt.Fprintf(&s.rows, "%s\t%d\t%d\n", chrom, pos, depths[pos])
	}
	return nil
}

type failingSink struct{}

func (failingSink) WriteChromosome(string, Depths) error { return errors.New("disk full") }

func testGenome(t *testing.T) (Catalog, []*sam.Record) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	catalog := Catalog{
		{Name: "chr2", Length: 30000},
		{Name: "chr10", Length: 12000},
		{Name: "chr1", Length: 50000},
		{Name: "chrM", Length: 16569},
		{Name: "unplaced", Length: 5000},
	}
	var records []*sam.Record
	for _, r := range catalog[:4] {
		ref := newRef(t, r.Name, int(r.Length))
		records = append(records, randomRecords(rng, ref, 150, int(r.Length))...)
	}
	return catalog, records
}

func newTestEngine(t *testing.T, catalog Catalog, opener *fakeOpener, chunkSize uint32) (*Engine, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := NewConfig()
	cfg.ChunkSize = chunkSize
	cfg.Workers = 4

	e, err := NewEngine(cfg, catalog, opener.Open, logrus.NewEntry(logger))
	require.NoError(t, err)
	return e, hook
}

func TestParallelAndStreamingAreEquivalent(t *testing.T) {
	catalog, records := testGenome(t)

	run := func(streaming bool, include Regions) (*Result, *recordingSink) {
		e, _ := newTestEngine(t, catalog, &fakeOpener{records: records}, 3000)
		e.Include = include
		sink := &recordingSink{}
		var res *Result
		var err error
		if streaming {
			res, err = e.RunStreaming(context.Background(), sink)
		} else {
			res, err = e.RunParallel(context.Background(), sink)
		}
		require.NoError(t, err)
		return res, sink
	}

	for name, include := range map[string]Regions{
		"whole genome": nil,
		"regions": {
			"chr1":  {{Start: 100, End: 9000}, {Start: 20000, End: 20500}},
			"chr10": {{Start: 0, End: 12000}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			par, parSink := run(false, include)
			str, strSink := run(true, include)

			assert.Equal(t, ModeParallel, par.Mode)
			assert.Equal(t, ModeStreaming, str.Mode)
			assert.NotZero(t, parSink.rows.Len())
			assert.Equal(t, parSink.rows.String(), strSink.rows.String())
			assert.Equal(t, parSink.order, strSink.order)
			assert.Equal(t, par.Summary, str.Summary)
			assert.Nil(t, str.Map)
			assert.True(t, par.Summary.HasData)
		})
	}
}

func TestEngineEmitsChromosomesSortedByName(t *testing.T) {
	catalog, records := testGenome(t)
	e, _ := newTestEngine(t, catalog, &fakeOpener{records: records}, 5000)

	sink := &recordingSink{}
	_, err := e.RunParallel(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"chr1", "chr10", "chr2", "chrM"}, sink.order)
}

func TestEngineMatchesSingleChunkReference(t *testing.T) {
	catalog, records := testGenome(t)
	e, _ := newTestEngine(t, catalog, &fakeOpener{records: records}, 777)

	res, err := e.RunParallel(context.Background(), nil)
	require.NoError(t, err)

	store := &fakeStore{records: records}
	for _, ref := range catalog {
		whole := ProcessChunk(store, Chunk{Chromosome: ref.Name, Start: 1, End: ref.Length + 1})
		require.NoError(t, whole.Err)
		if len(whole.Depths) == 0 {
			assert.NotContains(t, res.Map, ref.Name)
			continue
		}
		assert.Equal(t, whole.Depths, res.Map[ref.Name], ref.Name)
	}
}

func TestEngineSurvivesFailingChunk(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	records := []*sam.Record{
		newRecord(ref, 50, match(100)),  // chunk [1,301)
		newRecord(ref, 350, match(100)), // chunk [301,601), which fails
		newRecord(ref, 700, match(50)),  // chunk [601,901)
	}
	opener := &fakeOpener{records: records, failStarts: map[uint32]bool{301: true}}
	e, hook := newTestEngine(t, Catalog{{Name: "chr1", Length: 1000}}, opener, 300)

	res, err := e.RunParallel(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.ChunksFailed)
	assert.Equal(t, 3, res.Summary.ChunksProcessed)

	depths := res.Map["chr1"]
	assert.Len(t, depths, 100+50)
	assert.NotContains(t, depths, uint32(350))
	assert.Equal(t, uint32(1), depths[50])
	assert.Equal(t, uint32(1), depths[749])

	var warnings []*logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["chunk"] != nil {
			warnings = append(warnings, entry)
		}
	}
	require.Len(t, warnings, 1)
	assert.Equal(t, "chr1:301-601", warnings[0].Data["chunk"])
	assert.ErrorIs(t, warnings[0].Data["error"].(error), errBrokenIndex)
}

func TestEngineOpenFailureFailsChunksOnly(t *testing.T) {
	opener := &fakeOpener{openErr: errors.New("permission denied")}
	e, _ := newTestEngine(t, Catalog{{Name: "chr1", Length: 1000}}, opener, 100)

	sink := &recordingSink{}
	res, err := e.RunParallel(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Summary.ChunksFailed)
	assert.Zero(t, res.Summary.ChunksProcessed)
	assert.False(t, res.Summary.HasData)
	assert.Empty(t, sink.order)
}

func TestEngineEmptyInput(t *testing.T) {
	catalog := Catalog{{Name: "chr1", Length: 5000}, {Name: "chr2", Length: 100}}
	for _, streaming := range []bool{false, true} {
		e, _ := newTestEngine(t, catalog, &fakeOpener{}, 1000)
		sink := &recordingSink{}

		var res *Result
		var err error
		if streaming {
			res, err = e.RunStreaming(context.Background(), sink)
		} else {
			res, err = e.RunParallel(context.Background(), sink)
		}
		require.NoError(t, err)
		assert.False(t, res.Summary.HasData)
		assert.Zero(t, res.Summary.GlobalMean)
		assert.Empty(t, sink.order)
		assert.Zero(t, sink.rows.Len())
	}
}

func TestEngineWorkersNeverShareHandles(t *testing.T) {
	catalog, records := testGenome(t)
	opener := &fakeOpener{records: records}
	e, _ := newTestEngine(t, catalog, opener, 500)
	e.Config.Workers = 8

	_, err := e.RunParallel(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, opener.shared, "a store handle was used by two queries at once")
	assert.LessOrEqual(t, opener.opened, 8)
}

func TestEngineReopensHandleAfterFailure(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	opener := &fakeOpener{
		records:    []*sam.Record{newRecord(ref, 1, match(1000))},
		failStarts: map[uint32]bool{1: true, 101: true},
	}
	e, _ := newTestEngine(t, Catalog{{Name: "chr1", Length: 1000}}, opener, 100)
	e.Config.Workers = 1

	res, err := e.RunParallel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.ChunksFailed)
	assert.Equal(t, 3, opener.opened)
	assert.Len(t, res.Map["chr1"], 800)
}

func TestEngineSinkErrorIsFatal(t *testing.T) {
	catalog, records := testGenome(t)
	e, _ := newTestEngine(t, catalog, &fakeOpener{records: records}, 5000)

	_, err := e.RunParallel(context.Background(), failingSink{})
	assert.ErrorContains(t, err, "disk full")

	_, err = e.RunStreaming(context.Background(), failingSink{})
	assert.ErrorContains(t, err, "disk full")
}

func TestEngineStopsWhenCancelled(t *testing.T) {
	catalog, records := testGenome(t)
	e, _ := newTestEngine(t, catalog, &fakeOpener{records: records}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.RunParallel(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.RunStreaming(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineRunSelectsModeFromInputSize(t *testing.T) {
	catalog, records := testGenome(t)
	input := filepath.Join(t.TempDir(), "in.bam")
	require.NoError(t, os.WriteFile(input, make([]byte, 2048), 0644))

	e, _ := newTestEngine(t, catalog, &fakeOpener{records: records}, 5000)
	e.Config.Input = input

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ModeParallel, res.Mode)

	e.Config.MemoryLimit = 1024
	res, err = e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ModeStreaming, res.Mode)

	e.Config.Input = filepath.Join(t.TempDir(), "missing.bam")
	_, err = e.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.ChunkSize = 0
	_, err := NewEngine(cfg, nil, (&fakeOpener{}).Open, nil)
	assert.True(t, errors.Is(err, ErrInvalidChunkSize))

	_, err = NewEngine(NewConfig(), nil, nil, nil)
	assert.Error(t, err)

	e, err := NewEngine(NewConfig(), nil, (&fakeOpener{}).Open, nil)
	require.NoError(t, err)
	assert.NotNil(t, e.Logger)
}
