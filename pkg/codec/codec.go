// Package codec wraps the compression libraries exercised by the
// compression benchmark behind one writer/reader constructor pair.
package codec

import (
	"compress/gzip"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4"
)

// Type names a compression algorithm.
type Type string

// Supported compression types.
const (
	TypeNone   Type = "none"
	TypeGzip   Type = "gzip"
	TypePgzip  Type = "pgzip"
	TypeSnappy Type = "snappy"
	TypeLZ4    Type = "lz4"
	TypeS2     Type = "s2"
	TypeZstd   Type = "zstd"
)

// All lists every supported type in a stable order.
var All = []Type{TypeNone, TypeGzip, TypePgzip, TypeSnappy, TypeLZ4, TypeS2, TypeZstd}

// Parse returns the Type named by s (case-insensitive).
func Parse(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown compression type %q", s)
}

// Compress makes a compressed writer over w. A nil level uses the
// codec's default. Closing the writer flushes it but leaves w open.
func Compress(w io.Writer, t Type, level *int) (io.WriteCloser, error) {
	switch t {
	case TypeGzip:
		l := gzip.DefaultCompression
		if level != nil {
			l = *level
		}
		gw, err := gzip.NewWriterLevel(w, l)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		return gw, nil
	case TypePgzip:
		l := pgzip.DefaultCompression
		if level != nil {
			l = *level
		}
		pgw, err := pgzip.NewWriterLevel(w, l)
		if err != nil {
			return nil, fmt.Errorf("pgzip writer: %w", err)
		}
		if err := pgw.SetConcurrency(1<<20, max(runtime.NumCPU()/2, 1)); err != nil {
			return nil, fmt.Errorf("pgzip concurrency: %w", err)
		}
		return pgw, nil
	case TypeLZ4:
		lw := lz4.NewWriter(w)
		if level != nil {
			lw.Header.CompressionLevel = *level
		}
		return lw, nil
	case TypeSnappy:
		return snappy.NewBufferedWriter(w), nil
	case TypeS2:
		opts := []s2.WriterOption{s2.WriterConcurrency(max(runtime.NumCPU()/3, 1))}
		if level != nil {
			switch *level {
			case 1:
				opts = append(opts, s2.WriterUncompressed())
			case 3:
				opts = append(opts, s2.WriterBetterCompression())
			case 4:
				opts = append(opts, s2.WriterBestCompression())
			}
		}
		return s2.NewWriter(w, opts...), nil
	case TypeZstd:
		encLevel := zstd.SpeedDefault
		if level != nil {
			encLevel = zstd.EncoderLevelFromZstd(*level)
		}
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encLevel))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return zw, nil
	case TypeNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unknown compression type %q", t)
	}
}

// Decompress wraps r in a decompressing reader for t.
func Decompress(r io.Reader, t Type) (io.ReadCloser, error) {
	switch t {
	case TypeGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gr, nil
	case TypePgzip:
		pr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("pgzip reader: %w", err)
		}
		return pr, nil
	case TypeLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case TypeSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case TypeS2:
		return io.NopCloser(s2.NewReader(r)), nil
	case TypeZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	case TypeNone:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unknown compression type %q", t)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// CountingWriter discards writes and counts the bytes.
type CountingWriter struct {
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	c.N += int64(len(p))
	return len(p), nil
}

// CompressedSize compresses payload with t and returns the output size.
func CompressedSize(payload []byte, t Type, level *int) (int64, error) {
	var cw CountingWriter
	w, err := Compress(&cw, t, level)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return 0, fmt.Errorf("%s compress: %w", t, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("%s close: %w", t, err)
	}
	return cw.N, nil
}

// Ratio is original/compressed, or 0 when compressed is 0.
func Ratio(original, compressed int64) float64 {
	if compressed <= 0 {
		return 0
	}
	return float64(original) / float64(compressed)
}
