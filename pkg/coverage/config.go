package coverage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Size units
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// DefaultMemoryLimit is the input size above which streaming mode is used
const DefaultMemoryLimit = 500 * MB

// MaxChunkSize bounds the chunk width; each worker holds a dense counter
// per base of its current chunk.
const MaxChunkSize = 100 * 1000 * 1000

// Configuration errors
var (
	ErrNoInput          = errors.New("no input BAM specified")
	ErrMissingIndex     = errors.New("BAM index not found")
	ErrInvalidChunkSize = errors.New("chunk size must be a positive number of bases")
)

// Config holds the settings of a coverage run
type Config struct {
	Input      string // indexed BAM file
	IndexPath  string // resolved by Validate when empty
	IncludeBED string // regions to restrict coverage to
	ChromBED   string // full chromosome extents

	ChunkSize      uint32 // bases per chunk (default: 10,000)
	Workers        int    // parallel workers (default: detected performance cores)
	ForceStreaming bool   // always process one chromosome at a time
	MemoryLimit    int64  // input size threshold for streaming mode in bytes (default: 500MB)

	// Computed fields (not user-configurable)
	availableMemory int64
}

// NewConfig creates a Config with smart defaults
func NewConfig() *Config {
	memStats := getSystemMemory()
	return &Config{
		ChunkSize:       DefaultChunkSize,
		Workers:         detectOptimalWorkers(),
		MemoryLimit:     DefaultMemoryLimit,
		availableMemory: memStats.Available,
	}
}

// Validate checks the configuration before any chunk is processed
func (c *Config) Validate() error {
	if c.Input == "" {
		return ErrNoInput
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	if c.IndexPath == "" {
		idx, err := FindIndex(c.Input)
		if err != nil {
			return err
		}
		c.IndexPath = idx
	} else if _, err := os.Stat(c.IndexPath); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingIndex, err)
	}
	if c.ChunkSize == 0 {
		return ErrInvalidChunkSize
	}
	if c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: %s bp exceeds the maximum of %s bp",
			ErrInvalidChunkSize, FormatBases(c.ChunkSize), FormatBases(MaxChunkSize))
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.Workers > 256 {
		fmt.Fprintf(os.Stderr, "Warning: Workers > 256 may cause diminishing returns\n")
	}
	if c.MemoryLimit <= 0 {
		return fmt.Errorf("memory limit must be positive")
	}
	for _, path := range []string{c.IncludeBED, c.ChromBED} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read region file: %w", err)
		}
	}
	return nil
}

// ShowConfig prints the effective configuration
func (c *Config) ShowConfig(w io.Writer) {
	memStats := getSystemMemory()

	fmt.Fprintf(w, "System Information:\n")
	fmt.Fprintf(w, "  Total RAM: %.1f GB\n", float64(memStats.Total)/float64(GB))
	fmt.Fprintf(w, "  Available RAM: %.1f GB\n", float64(memStats.Available)/float64(GB))

	totalCores := runtime.NumCPU()
	optimalWorkers := detectOptimalWorkers()
	if optimalWorkers < totalCores {
		fmt.Fprintf(w, "  CPU cores: %d total (%d performance, %d efficiency)\n",
			totalCores, optimalWorkers, totalCores-optimalWorkers)
	} else {
		fmt.Fprintf(w, "  CPU cores: %d\n", totalCores)
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Input: %s\n", c.Input)
	if c.IncludeBED != "" {
		fmt.Fprintf(w, "  Regions: %s\n", c.IncludeBED)
	}
	if c.ChromBED != "" {
		fmt.Fprintf(w, "  Chromosome extents: %s\n", c.ChromBED)
	}
	fmt.Fprintf(w, "  Workers: %d\n", c.Workers)
	fmt.Fprintf(w, "  Chunk size: %s bp\n", FormatBases(c.ChunkSize))
	fmt.Fprintf(w, "  Memory limit: %.1f MB\n", float64(c.MemoryLimit)/float64(MB))
	if c.ForceStreaming {
		fmt.Fprintf(w, "  Streaming: forced\n")
	} else {
		fmt.Fprintf(w, "  Streaming: above memory limit\n")
	}
	if c.availableMemory > 0 && c.MemoryLimit > c.availableMemory {
		fmt.Fprintf(w, "  Warning: memory limit exceeds available memory\n")
	}
	fmt.Fprintf(w, "\n")
}

// FindIndex locates the BAI index of a BAM file, trying <bam>.bai and then
// <stem>.bai.
func FindIndex(bamPath string) (string, error) {
	candidates := []string{bamPath + ".bai"}
	if stem := strings.TrimSuffix(bamPath, ".bam"); stem != bamPath {
		candidates = append(candidates, stem+".bai")
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w at %s (run 'samtools index %s' to create it)",
		ErrMissingIndex, candidates[0], bamPath)
}

// ParseBases parses a base count such as "10000", "10K" or "1M". K and M
// are decimal multipliers.
func ParseBases(s string) (uint32, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "BP")

	var multiplier uint64 = 1
	if strings.HasSuffix(s, "K") {
		multiplier = 1000
		s = s[:len(s)-1]
	} else if strings.HasSuffix(s, "M") {
		multiplier = 1000 * 1000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseUint(s, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChunkSize, s)
	}
	bases := value * multiplier
	if bases > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidChunkSize, s)
	}
	return uint32(bases), nil
}

// FormatBases renders a base count using K/M suffixes when exact
func FormatBases(n uint32) string {
	switch {
	case n >= 1000*1000 && n%(1000*1000) == 0:
		return fmt.Sprintf("%dM", n/(1000*1000))
	case n >= 1000 && n%1000 == 0:
		return fmt.Sprintf("%dK", n/1000)
	}
	return strconv.FormatUint(uint64(n), 10)
}

// ParseSize parses a size string (e.g., "512M", "4G") to bytes
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	sizeStr = strings.TrimSuffix(sizeStr, "B")

	var multiplier int64 = 1
	if strings.HasSuffix(sizeStr, "K") {
		multiplier = KB
		sizeStr = sizeStr[:len(sizeStr)-1]
	} else if strings.HasSuffix(sizeStr, "M") {
		multiplier = MB
		sizeStr = sizeStr[:len(sizeStr)-1]
	} else if strings.HasSuffix(sizeStr, "G") {
		multiplier = GB
		sizeStr = sizeStr[:len(sizeStr)-1]
	}

	value, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid size: %s", sizeStr)
	}
	if value > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return value * multiplier, nil
}

// ParseMemoryLimit parses the streaming threshold. A bare number is taken
// as megabytes; otherwise the K/M/G units of ParseSize apply.
func ParseMemoryLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 || n > math.MaxInt64/MB {
			return 0, fmt.Errorf("invalid memory limit: %s", s)
		}
		return n * MB, nil
	}
	size, err := ParseSize(s)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, fmt.Errorf("invalid memory limit: %s", s)
	}
	return size, nil
}

// SystemMemory holds system memory information
type SystemMemory struct {
	Total     int64
	Available int64
	Used      int64
}

// getSystemMemory returns system memory stats
func getSystemMemory() SystemMemory {
	total, available := detectSystemMemory()

	// Fallback to sensible defaults if detection fails
	if total == 0 {
		total = 16 * GB
		available = 12 * GB
	}

	return SystemMemory{
		Total:     total,
		Available: available,
		Used:      total - available,
	}
}
