package coverage

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRegion parses a samtools-style region "chr:start-end" with 1-based
// inclusive coordinates into a Chunk (end exclusive). A bare "chr" is not
// accepted; the caller knows the chromosome length and can plan it.
func ParseRegion(s string) (Chunk, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return Chunk{}, fmt.Errorf("invalid region format: %s (expected chr:start-end)", s)
	}
	chrom, span := s[:i], strings.ReplaceAll(s[i+1:], ",", "")

	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return Chunk{}, fmt.Errorf("invalid region format: %s (expected chr:start-end)", s)
	}
	start, err := strconv.ParseUint(startStr, 10, 32)
	if err != nil || start == 0 {
		return Chunk{}, fmt.Errorf("invalid start position %q", startStr)
	}
	end, err := strconv.ParseUint(endStr, 10, 32)
	if err != nil || end >= 1<<32-1 {
		return Chunk{}, fmt.Errorf("invalid end position %q", endStr)
	}
	if end < start {
		return Chunk{}, fmt.Errorf("region end %d before start %d", end, start)
	}

	return Chunk{Chromosome: chrom, Start: uint32(start), End: uint32(end) + 1}, nil
}
