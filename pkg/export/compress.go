package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects an optional stream compressor for artifacts.
type Compression string

// Supported compressors.
const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd" // better ratio
	CompressionLZ4  Compression = "lz4"  // faster decode
)

// ParseCompression parses a compressor name, case-insensitively.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd, CompressionLZ4:
		return c, nil
	default:
		return CompressionNone, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// Ext returns the extension appended after the encoding extension.
func (c Compression) Ext() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// NewWriter wraps w with the compressor. Closing the returned writer
// flushes the compressed stream but does not close w.
func (c Compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case "", CompressionNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
