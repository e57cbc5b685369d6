package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scttfrdmn/nanocov-go/pkg/bam"
)

const creationTimeLayout = "02/01/2006 15:04:05"

// Cramino is a cramino-style summary of a BAM file
type Cramino struct {
	FileName         string
	NumAlignments    uint64
	PercentFromTotal float64
	NumReads         uint64
	YieldGb          float64
	MeanCoverage     float64
	YieldGbLong      float64 // reads longer than 25 kb
	N50              uint32
	N75              uint32
	MedianLength     float64
	MeanLength       float64
	Path             string
	CreationTime     time.Time
	RunID            string // empty to omit
}

// NewCramino builds the summary. Mean coverage is bases / genomeSize when
// genomeSize is set, and globalMean otherwise.
func NewCramino(path string, rs *bam.ReadStats, globalMean float64, genomeSize uint64) Cramino {
	c := Cramino{
		FileName:     filepath.Base(path),
		Path:         path,
		CreationTime: modTime(path),
		MeanCoverage: globalMean,
	}
	if rs == nil {
		return c
	}

	c.NumAlignments = rs.NumAlignments
	c.NumReads = rs.NumReads
	if rs.NumAlignments > 0 {
		c.PercentFromTotal = 100 * float64(rs.NumReads) / float64(rs.NumAlignments)
	}
	c.YieldGb = float64(rs.NumBases) / 1e9
	c.YieldGbLong = float64(rs.LongBases) / 1e9
	c.N50 = rs.N50
	c.N75 = rs.N75
	c.MedianLength = rs.MedianLength
	c.MeanLength = rs.MeanLength
	if genomeSize > 0 {
		c.MeanCoverage = float64(rs.NumBases) / float64(genomeSize)
	}
	return c
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return info.ModTime().UTC()
}

// String renders the tab-separated report
func (c Cramino) String() string {
	var b strings.Builder
	c.WriteTo(&b)
	return b.String()
}

// WriteTo writes the tab-separated report
func (c Cramino) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "File name\t%s\n", c.FileName)
	fmt.Fprintf(&b, "Number of alignments\t%d\n", c.NumAlignments)
	fmt.Fprintf(&b, "%% from total alignments\t%.2f\n", c.PercentFromTotal)
	fmt.Fprintf(&b, "Number of reads\t%d\n", c.NumReads)
	fmt.Fprintf(&b, "Yield [Gb]\t%.2f\n", c.YieldGb)
	fmt.Fprintf(&b, "Mean coverage\t%.2f\n", c.MeanCoverage)
	fmt.Fprintf(&b, "Yield [Gb] (>25kb)\t%.2f\n", c.YieldGbLong)
	fmt.Fprintf(&b, "N50\t%d\n", c.N50)
	fmt.Fprintf(&b, "N75\t%d\n", c.N75)
	fmt.Fprintf(&b, "Median length\t%.2f\n", c.MedianLength)
	fmt.Fprintf(&b, "Mean length\t%.2f\n", c.MeanLength)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Path\t%s\n", c.Path)
	fmt.Fprintf(&b, "Creation time\t%s\n", c.CreationTime.Format(creationTimeLayout))
	if c.RunID != "" {
		fmt.Fprintf(&b, "Run ID\t%s\n", c.RunID)
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// DefaultCraminoPath returns <input stem>.cramino next to the input
func DefaultCraminoPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".cramino"
}
