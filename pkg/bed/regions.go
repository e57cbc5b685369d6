// Package bed loads BED region files.
package bed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ParseRegions reads a BED file into per-chromosome intervals in file
// order. Intervals keep BED coordinates (0-based, half-open).
//
// Blank lines, comments and track/browser lines are skipped, as are lines
// with fewer than three fields. A line whose start or end is not a valid
// coordinate is an error. Gzip-compressed files are detected and
// decompressed.
func ParseRegions(path string) (coverage.Regions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open BED file: %w", err)
	}
	defer f.Close()

	r, err := decompress(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read BED file %s: %w", path, err)
	}
	regions, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return regions, nil
}

func decompress(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(magic, gzipMagic) {
		return br, nil
	}
	return gzip.NewReader(br)
}

// Read parses BED records from r
func Read(r io.Reader) (coverage.Regions, error) {
	regions := make(coverage.Regions)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if skipLine(line) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		start, err := parseCoord(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid start %q: %w", lineNum, fields[1], err)
		}
		end, err := parseCoord(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid end %q: %w", lineNum, fields[2], err)
		}

		chrom := fields[0]
		regions[chrom] = append(regions[chrom], coverage.Interval{Start: start, End: end})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNum+1, err)
	}
	return regions, nil
}

func skipLine(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

func parseCoord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if v == math.MaxUint32 {
		return 0, fmt.Errorf("coordinate out of range")
	}
	return uint32(v), nil
}

// Extent returns the smallest start and largest end of the intervals.
// ok is false when there are none.
func Extent(intervals []coverage.Interval) (start, end uint32, ok bool) {
	if len(intervals) == 0 {
		return 0, 0, false
	}
	start, end = intervals[0].Start, intervals[0].End
	for _, iv := range intervals[1:] {
		if iv.Start < start {
			start = iv.Start
		}
		if iv.End > end {
			end = iv.End
		}
	}
	return start, end, true
}
