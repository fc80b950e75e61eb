package graph

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compressor is the closed tagged enumeration replacing the source's
// runtime import-by-name of a compression module (§9 Design Notes). Adding
// a variant means adding one entry to the registry below.
type Compressor string

// Supported compressors. lzma/bz2 are not implemented: see DESIGN.md.
const (
	Gzip Compressor = "gzip"
	Zstd Compressor = "zstd"
)

// variant pairs a compressor's stream constructor with its file extension.
type variant struct {
	extension string
	wrap      func(w io.Writer) (io.WriteCloser, error)
}

var registry = map[Compressor]variant{
	Gzip: {
		extension: ".gz",
		wrap: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.BestSpeed)
		},
	},
	Zstd: {
		extension: ".zst",
		wrap: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
	},
}

// Extension returns the file extension registered for c.
func Extension(c Compressor) (string, error) {
	v, ok := registry[c]
	if !ok {
		return "", fmt.Errorf("graph: unknown compressor %q", c)
	}
	return v.extension, nil
}

// Wrap returns a writer that compresses everything written to it into w
// using the codec registered for c.
func Wrap(c Compressor, w io.Writer) (io.WriteCloser, error) {
	v, ok := registry[c]
	if !ok {
		return nil, fmt.Errorf("graph: unknown compressor %q", c)
	}
	return v.wrap(w)
}

// Reader wraps r with the decompressor registered for c.
func Reader(c Compressor, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("graph: unknown compressor %q", c)
	}
}

// DetectCompressor infers the compressor from a file extension (including
// the leading dot), used when the Cleaner or Info Updater walks the graph
// root without prior knowledge of which compressor wrote a given file.
func DetectCompressor(ext string) (Compressor, bool) {
	for tag, v := range registry {
		if v.extension == ext {
			return tag, true
		}
	}
	return "", false
}
