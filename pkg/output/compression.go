package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is the encoding applied to an output file
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// CompressionFor picks the compression from a file name extension
func CompressionFor(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd
	}
	return CompressionNone
}

// Compress wraps w with the encoder for c. Closing the result finishes the
// stream and then closes w.
func Compress(w io.WriteCloser, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone, "":
		return w, nil
	case CompressionGzip:
		return &layered{enc: gzip.NewWriter(w), dst: w}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		return &layered{enc: enc, dst: w}, nil
	}
	return nil, fmt.Errorf("unsupported compression: %s", c)
}

// layered closes an encoder before its destination
type layered struct {
	enc io.WriteCloser
	dst io.WriteCloser
}

func (l *layered) Write(p []byte) (int, error) {
	return l.enc.Write(p)
}

func (l *layered) Close() error {
	err := l.enc.Close()
	if cerr := l.dst.Close(); err == nil {
		err = cerr
	}
	return err
}
