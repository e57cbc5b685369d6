package bam

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
)

// read describes one alignment of a test BAM
type read struct {
	ref    int
	pos1   int // 1-based
	length int
	flags  sam.Flags
	qual   byte
}

// writeTestBAM writes a coordinate-sorted BAM and its BAI into dir and
// returns the BAM path. reads must be sorted by reference and position.
func writeTestBAM(t *testing.T, dir string, refs []*sam.Reference, reads []read) string {
	t.Helper()

	header, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	header.SortOrder = sam.Coordinate

	path := filepath.Join(dir, "test.bam")
	f, err := os.Create(path)
	require.NoError(t, err)

	bw, err := bam.NewWriter(f, header, 1)
	require.NoError(t, err)
	for i, r := range reads {
		seq := bytes.Repeat([]byte{'A'}, r.length)
		var qual []byte
		if r.qual > 0 {
			qual = bytes.Repeat([]byte{r.qual}, r.length)
		}
		rec, err := sam.NewRecord(
			"read"+string(rune('a'+i%26)), refs[r.ref], nil,
			r.pos1-1, -1, 0, 60,
			[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, r.length)},
			seq, qual, nil,
		)
		require.NoError(t, err)
		rec.Flags = r.flags
		require.NoError(t, bw.Write(rec))
	}
	require.NoError(t, bw.Close())
	require.NoError(t, f.Close())

	writeTestIndex(t, path)
	return path
}

func writeTestIndex(t *testing.T, path string) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	require.NoError(t, err)
	defer br.Close()

	var idx bam.Index
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, idx.Add(rec, br.LastChunk()))
	}

	out, err := os.Create(path + ".bai")
	require.NoError(t, err)
	require.NoError(t, bam.WriteIndex(out, &idx))
	require.NoError(t, out.Close())
}

func testRefs(t *testing.T) []*sam.Reference {
	t.Helper()
	var refs []*sam.Reference
	for _, r := range []struct {
		name   string
		length int
	}{{"chr1", 100000}, {"chr2", 50000}, {"chr3", 20000}} {
		ref, err := sam.NewReference(r.name, "", "", r.length, nil, nil)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return refs
}
