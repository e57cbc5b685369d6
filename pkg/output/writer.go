package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/exascience/pargo/parallel"

	"github.com/scttfrdmn/nanocov-go/pkg/coverage"
)

// Header is the first line of every coverage table
const Header = "#chromosome\tposition\tcount\n"

// rowsPerBlock is the number of rows formatted by one task
const rowsPerBlock = 16 * 1024

// TSVWriter writes the coverage table: one row per covered position,
// grouped by chromosome in the order they are written, positions
// ascending. It implements coverage.Sink.
type TSVWriter struct {
	dst  io.WriteCloser
	buf  *bufio.Writer
	rows int64
}

// NewTSVWriter creates name in storage, compressed according to its
// extension, and writes the header line.
func NewTSVWriter(storage Storage, name string) (*TSVWriter, error) {
	f, err := storage.Create(name)
	if err != nil {
		return nil, err
	}
	return newTSVWriter(f, CompressionFor(name))
}

// NewTSVStream writes an uncompressed table to w. Closing the writer
// flushes but does not close w.
func NewTSVStream(w io.Writer) (*TSVWriter, error) {
	return newTSVWriter(nopCloser{w}, CompressionNone)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func newTSVWriter(f io.WriteCloser, c Compression) (*TSVWriter, error) {
	dst, err := Compress(f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	w := &TSVWriter{dst: dst, buf: bufio.NewWriterSize(dst, 1<<20)}
	if _, err := w.buf.WriteString(Header); err != nil {
		dst.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

// WriteChromosome appends the rows of one chromosome
func (w *TSVWriter) WriteChromosome(chrom string, depths coverage.Depths) error {
	positions := depths.Positions()
	if len(positions) == 0 {
		return nil
	}

	blocks := make([][]byte, (len(positions)+rowsPerBlock-1)/rowsPerBlock)
	parallel.Range(0, len(blocks), 0, func(low, high int) {
		for b := low; b < high; b++ {
			from := b * rowsPerBlock
			to := from + rowsPerBlock
			if to > len(positions) {
				to = len(positions)
			}
			blocks[b] = formatRows(chrom, positions[from:to], depths)
		}
	})

	for _, block := range blocks {
		if _, err := w.buf.Write(block); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
	}
	w.rows += int64(len(positions))
	return nil
}

func formatRows(chrom string, positions []uint32, depths coverage.Depths) []byte {
	out := make([]byte, 0, len(positions)*(len(chrom)+16))
	for _, pos := range positions {
		out = append(out, chrom...)
		out = append(out, '\t')
		out = strconv.AppendUint(out, uint64(pos), 10)
		out = append(out, '\t')
		out = strconv.AppendUint(out, uint64(depths[pos]), 10)
		out = append(out, '\n')
	}
	return out
}

// WriteMap writes a whole coverage map, chromosomes sorted by name
func (w *TSVWriter) WriteMap(m coverage.Map) error {
	for _, chrom := range m.Chromosomes() {
		if err := w.WriteChromosome(chrom, m[chrom]); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the number of rows written so far
func (w *TSVWriter) Rows() int64 {
	return w.rows
}

// Close flushes buffered rows, finishes compression and completes the
// upload for S3 storage.
func (w *TSVWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.dst.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := w.dst.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
