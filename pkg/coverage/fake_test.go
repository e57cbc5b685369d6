package coverage

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
)

var errBrokenIndex = errors.New("broken index")

func newRef(t testing.TB, name string, length int) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	require.NoError(t, err)
	return ref
}

// newRecord builds an alignment at a 1-based position
func newRecord(ref *sam.Reference, pos1 int, ops ...sam.CigarOp) *sam.Record {
	return &sam.Record{
		Name:  "read",
		Ref:   ref,
		Pos:   pos1 - 1,
		Cigar: ops,
	}
}

func match(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarMatch, n) }

// sliceIterator iterates over a fixed record list
type sliceIterator struct {
	records []*sam.Record
	i       int
	err     error
	onClose func()
}

func (it *sliceIterator) Next() bool {
	if it.i >= len(it.records) {
		return false
	}
	it.i++
	return true
}

func (it *sliceIterator) Record() *sam.Record { return it.records[it.i-1] }
func (it *sliceIterator) Error() error        { return it.err }

func (it *sliceIterator) Close() error {
	if it.onClose != nil {
		it.onClose()
	}
	return nil
}

// fakeStore returns every record of the queried chromosome, mimicking the
// bin granularity of a real index. Queries whose start is in failStarts
// fail; iterStarts fail during iteration instead. An unfiltered store
// returns all records regardless of chromosome.
type fakeStore struct {
	records    []*sam.Record
	unfiltered bool
	failStarts map[uint32]bool
	iterStarts map[uint32]bool

	inUse   int32
	shared  *int32 // set when two queries overlap on one handle
	queries int32
}

func (s *fakeStore) Query(chrom string, start, end uint32) (RecordIterator, error) {
	atomic.AddInt32(&s.queries, 1)
	if s.failStarts[start] {
		return nil, errBrokenIndex
	}
	if !atomic.CompareAndSwapInt32(&s.inUse, 0, 1) && s.shared != nil {
		atomic.StoreInt32(s.shared, 1)
	}

	var recs []*sam.Record
	for _, rec := range s.records {
		if s.unfiltered || (rec.Ref != nil && rec.Ref.Name() == chrom) {
			recs = append(recs, rec)
		}
	}
	it := &sliceIterator{records: recs, onClose: func() { atomic.StoreInt32(&s.inUse, 0) }}
	if s.iterStarts[start] {
		it.records = nil
		it.err = errors.New("truncated block")
	}
	return it, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeOpener hands out a fresh fakeStore over the same records per call
type fakeOpener struct {
	mu         sync.Mutex
	records    []*sam.Record
	failStarts map[uint32]bool
	openErr    error
	opened     int
	shared     int32
}

func (o *fakeOpener) Open() (Store, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.opened++
	return &fakeStore{records: o.records, failStarts: o.failStarts, shared: &o.shared}, nil
}
