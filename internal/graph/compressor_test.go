package graph

import (
	"bytes"
	"io"
	"testing"
)

func TestGzipRoundTrip(t *testing.T) {
	t.Parallel()
	roundTrip(t, Gzip)
}

func TestZstdRoundTrip(t *testing.T) {
	t.Parallel()
	roundTrip(t, Zstd)
}

func roundTrip(t *testing.T, c Compressor) {
	t.Helper()
	var buf bytes.Buffer
	w, err := Wrap(c, &buf)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	payload := []byte(`{"nodes":[],"edges":[]}`)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Reader(c, &buf)
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, payload)
	}
}

func TestExtensionRejectsUnknownCompressor(t *testing.T) {
	t.Parallel()
	if _, err := Extension("bz2"); err == nil {
		t.Fatal("expected an error for an unregistered compressor")
	}
}

func TestDetectCompressorMatchesRegisteredExtensions(t *testing.T) {
	t.Parallel()
	cases := map[string]Compressor{".gz": Gzip, ".zst": Zstd}
	for ext, want := range cases {
		got, ok := DetectCompressor(ext)
		if !ok {
			t.Fatalf("DetectCompressor(%q): expected a match", ext)
		}
		if got != want {
			t.Fatalf("DetectCompressor(%q): got %q, want %q", ext, got, want)
		}
	}
}

func TestDetectCompressorRejectsUnknownExtension(t *testing.T) {
	t.Parallel()
	if _, ok := DetectCompressor(".bz2"); ok {
		t.Fatal("expected no match for an unregistered extension")
	}
}
