package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ralt/bundlemeta/internal/models"
)

func TestGzipRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("index "), 100)

	gz, err := GzipCompress(data)
	if err != nil {
		t.Fatalf("GzipCompress failed: %v", err)
	}
	if c := DetectCompression(gz); c != models.CompressionGzip {
		t.Errorf("Expected gzip, detected %s", c)
	}

	out, err := GzipDecompress(gz)
	if err != nil {
		t.Fatalf("GzipDecompress failed: %v", err)
	}
	if !bytes.Equal(data, out) {
		t.Errorf("Round trip changed the data")
	}
}

func TestNewDecompressingReaderZstd(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("Failed to create zstd writer: %v", err)
	}
	if _, err := w.Write([]byte("bundle bytes")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	c := DetectCompression(buf.Bytes())
	if c != models.CompressionZstd {
		t.Fatalf("Expected zstd, detected %s", c)
	}

	r, err := NewDecompressingReader(&buf, c)
	if err != nil {
		t.Fatalf("NewDecompressingReader failed: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(out) != "bundle bytes" {
		t.Errorf("Expected %q, got %q", "bundle bytes", out)
	}
}

func TestDetectCompressionNone(t *testing.T) {
	for _, header := range [][]byte{{0x50, 0x4B, 0x03, 0x04}, nil} {
		if c := DetectCompression(header); c != models.CompressionNone {
			t.Errorf("Header %x: expected no compression, detected %s", header, c)
		}
	}
}

func TestChecksums(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.nar")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	c, err := CalculateChecksums(path)
	if err != nil {
		t.Fatalf("CalculateChecksums failed: %v", err)
	}
	if want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"; c.SHA256 != want {
		t.Errorf("Expected SHA256 %s, got %s", want, c.SHA256)
	}
	if c.Size != 3 {
		t.Errorf("Expected size 3, got %d", c.Size)
	}
	if got := CalculateChecksum([]byte("abc")); got != c.SHA256 {
		t.Errorf("CalculateChecksum disagrees: %s != %s", got, c.SHA256)
	}
}

func TestShouldCopyBundle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.nar")
	dst := filepath.Join(dir, "out", "src.nar")
	if err := os.WriteFile(src, []byte("abc"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	b := &models.Bundle{Size: 3, SHA256Sum: CalculateChecksum([]byte("abc"))}

	// Step 1: Destination missing
	needs, err := ShouldCopyBundle(b, src, dst)
	if err != nil {
		t.Fatalf("ShouldCopyBundle failed: %v", err)
	}
	if !needs {
		t.Errorf("Expected a copy when the destination is missing")
	}

	// Step 2: Destination already matches
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if needs, err = ShouldCopyBundle(b, src, dst); err != nil {
		t.Fatalf("ShouldCopyBundle failed: %v", err)
	}
	if needs {
		t.Errorf("Expected no copy when the destination matches")
	}

	// Step 3: Source and destination are the same file
	if needs, err = ShouldCopyBundle(b, src, src); err != nil {
		t.Fatalf("ShouldCopyBundle failed: %v", err)
	}
	if needs {
		t.Errorf("Expected no copy onto itself")
	}
}

func TestDetectConflicts(t *testing.T) {
	details := &models.BundleDetails{Coordinate: models.BundleCoordinate{GroupID: "g", ArtifactID: "a", Version: "1"}}
	existing := []models.Bundle{{SHA256Sum: "aa", Details: details}}

	if c := DetectConflicts(existing, []models.Bundle{{SHA256Sum: "aa", Details: details}}); len(c) != 0 {
		t.Errorf("Identical digests should not conflict, got %d", len(c))
	}
	if c := DetectConflicts(existing, []models.Bundle{{SHA256Sum: "bb", Details: details}}); len(c) != 1 {
		t.Errorf("Expected 1 conflict, got %d", len(c))
	}
	if id := BundleIdentity(existing[0]); id != "g:a:1" {
		t.Errorf("Expected identity g:a:1, got %s", id)
	}
	if id := BundleIdentity(models.Bundle{Filename: "raw.nar"}); id != "raw.nar" {
		t.Errorf("Expected identity raw.nar, got %s", id)
	}
}
