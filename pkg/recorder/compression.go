package recorder

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/m-mizutani/goerr/v2"
)

// CompressionType defines the compression algorithm to use
type CompressionType int

const (
	// NoCompression indicates no compression
	NoCompression CompressionType = iota
	// ZstdCompression indicates Zstandard compression
	ZstdCompression
)

// DefaultCompression is the default compression algorithm
var DefaultCompression = ZstdCompression

// String returns the configuration name of the compression type.
func (c CompressionType) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression converts "none" or "zstd".
func ParseCompression(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoCompression, nil
	case "zstd":
		return ZstdCompression, nil
	default:
		return NoCompression, goerr.New("invalid compression (expected: none|zstd)", goerr.V("compression", s))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewCompressedWriter returns a writer that compresses data before writing.
// Closing it flushes the compressor but leaves w open.
func NewCompressedWriter(w io.Writer, compressionType CompressionType) (io.WriteCloser, error) {
	if compressionType == NoCompression {
		return nopWriteCloser{w}, nil
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zstd encoder")
	}
	return enc, nil
}

// NewCompressedReader returns a reader that decompresses data after reading.
func NewCompressedReader(r io.Reader, compressionType CompressionType) (io.ReadCloser, error) {
	if compressionType == NoCompression {
		return io.NopCloser(r), nil
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zstd decoder")
	}
	return dec.IOReadCloser(), nil
}
