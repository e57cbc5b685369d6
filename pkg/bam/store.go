package bam

import (
	"errors"
	"fmt"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"

	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
)

// Store is one read handle on an indexed BAM file: its own file
// descriptor, BGZF reader and parsed BAI. A Store must not be shared
// between goroutines.
type Store struct {
	path   string
	file   *os.File
	reader *bam.Reader
	index  *bam.Index
	refs   map[string]*sam.Reference
}

// IndexPath returns the BAI path of a BAM file (<bam>.bai or <stem>.bai)
func IndexPath(bamPath string) (string, error) {
	return coverage.FindIndex(bamPath)
}

// Open opens the BAM file and reads its index
func Open(bamPath string) (*Store, error) {
	indexPath, err := IndexPath(bamPath)
	if err != nil {
		return nil, err
	}
	return OpenWithIndex(bamPath, indexPath)
}

// OpenWithIndex opens a BAM file with an explicit index path
func OpenWithIndex(bamPath, indexPath string) (*Store, error) {
	idx, err := readIndex(indexPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(bamPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open BAM file: %w", err)
	}

	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create BAM reader: %w", err)
	}

	refs := make(map[string]*sam.Reference)
	for _, ref := range br.Header().Refs() {
		refs[ref.Name()] = ref
	}

	return &Store{
		path:   bamPath,
		file:   f,
		reader: br,
		index:  idx,
		refs:   refs,
	}, nil
}

func readIndex(indexPath string) (*bam.Index, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coverage.ErrMissingIndex, err)
	}
	defer f.Close()

	idx, err := bam.ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read BAM index %s: %w", indexPath, err)
	}
	return idx, nil
}

// Query returns the records overlapping the 1-based window [start, end) of
// chrom. The index works at bin granularity, so records outside the window
// may be returned too.
func (s *Store) Query(chrom string, start, end uint32) (coverage.RecordIterator, error) {
	ref, ok := s.refs[chrom]
	if !ok {
		return nil, fmt.Errorf("reference %q not in BAM header", chrom)
	}
	if end <= start || start == 0 {
		return emptyIterator{}, nil
	}

	chunks, err := s.chunks(ref, int(start-1), int(end-1))
	if err != nil {
		return nil, fmt.Errorf("index lookup %s:%d-%d: %w", chrom, start, end, err)
	}
	if len(chunks) == 0 {
		return emptyIterator{}, nil
	}

	it, err := bam.NewIterator(s.reader, chunks)
	if err != nil {
		return nil, fmt.Errorf("seek %s:%d-%d: %w", chrom, start, end, err)
	}
	return it, nil
}

// tileWidth is the span of one BAI linear index entry
const tileWidth = 1 << 14

// chunks looks up the BGZF chunks of the 0-based window [beg, end). The
// linear index of a reference ends at the tile holding the last alignment
// end, excluding it, so a window inside that final tile is rejected with
// index.ErrInvalid although reads overlap it. Such lookups are retried one
// tile further left until the index accepts them; records outside the
// window are clipped by the caller.
func (s *Store) chunks(ref *sam.Reference, beg, end int) ([]bgzf.Chunk, error) {
	for {
		chunks, err := s.index.Chunks(ref, beg, end)
		switch {
		case err == nil:
			return chunks, nil
		case errors.Is(err, index.ErrNoReference):
			return nil, nil
		case errors.Is(err, index.ErrInvalid) && beg > 0:
			beg -= tileWidth
			if beg < 0 {
				beg = 0
			}
		case errors.Is(err, index.ErrInvalid):
			// no linear index entries: nothing indexed on this reference
			return nil, nil
		default:
			return nil, err
		}
	}
}

// Close releases the reader and the file
func (s *Store) Close() error {
	err := s.reader.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Opener returns a coverage.Opener that opens a fresh Store per call
func Opener(bamPath, indexPath string) coverage.Opener {
	return func() (coverage.Store, error) {
		if indexPath == "" {
			return Open(bamPath)
		}
		return OpenWithIndex(bamPath, indexPath)
	}
}

// ReadCatalog returns the references of the BAM header in file order
func ReadCatalog(bamPath string) (coverage.Catalog, error) {
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

	return catalogOf(br.Header()), nil
}

func catalogOf(h *sam.Header) coverage.Catalog {
	refs := h.Refs()
	catalog := make(coverage.Catalog, 0, len(refs))
	for _, ref := range refs {
		catalog = append(catalog, coverage.Reference{
			Name:   ref.Name(),
			Length: uint32(ref.Len()),
		})
	}
	return catalog
}

// emptyIterator is returned for windows without indexed reads
type emptyIterator struct{}

func (emptyIterator) Next() bool          { return false }
func (emptyIterator) Record() *sam.Record { return nil }
func (emptyIterator) Error() error        { return nil }
func (emptyIterator) Close() error        { return nil }

var _ coverage.Store = (*Store)(nil)
