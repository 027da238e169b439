package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/testutil"
	"github.com/ulikunitz/xz"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Failed to gzip: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

func xzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("Failed to create xz writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Failed to xz: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close xz writer: %v", err)
	}
	return buf.Bytes()
}

func TestDetectBundleType(t *testing.T) {
	nar := testutil.NarFixture(t, 1, 0)
	native := testutil.NativeFixture(nar, 1024)

	tests := []struct {
		name            string
		file            string
		data            []byte
		wantType        models.BundleType
		wantCompression models.Compression
	}{
		{"nar by magic", "bundle.zip", nar, models.BundleTypeNAR, models.CompressionNone},
		{"nar by extension", "bundle.nar", []byte("not zip"), models.BundleTypeNAR, models.CompressionNone},
		{"gzipped nar", "bundle.nar.gz", gzipped(t, nar), models.BundleTypeNAR, models.CompressionGzip},
		{"xz nar", "bundle.bin.xz", xzipped(t, nar), models.BundleTypeNAR, models.CompressionXZ},
		{"elf", "minifi", native, models.BundleTypeMinifiCpp, models.CompressionNone},
		{"elf named nar", "minifi.nar", native, models.BundleTypeMinifiCpp, models.CompressionNone},
		{"gzipped elf named nar", "minifi.nar.gz", gzipped(t, native), models.BundleTypeMinifiCpp, models.CompressionGzip},
		{"gzipped elf", "minifi.gz", gzipped(t, native), models.BundleTypeMinifiCpp, models.CompressionGzip},
		{"mach-o", "minifi-macos", append([]byte{0xCF, 0xFA, 0xED, 0xFE}, nar...), models.BundleTypeMinifiCpp, models.CompressionNone},
		{"pe named nar", "minifi.nar", append([]byte("MZ"), nar...), models.BundleTypeMinifiCpp, models.CompressionNone},
		{"pe", "minifi.exe", append([]byte("MZ"), nar...), models.BundleTypeMinifiCpp, models.CompressionNone},
		{"text", "README", []byte("hello"), models.BundleTypeUnknown, models.CompressionNone},
		{"empty", "empty", nil, models.BundleTypeUnknown, models.CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatalf("Failed to write %s: %v", tt.file, err)
			}

			gotType, gotCompression, err := DetectBundleType(path)
			if err != nil {
				t.Fatalf("DetectBundleType failed: %v", err)
			}
			if gotType != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, gotType)
			}
			if gotCompression != tt.wantCompression {
				t.Errorf("Expected compression %s, got %s", tt.wantCompression, gotCompression)
			}
		})
	}
}

func TestScanFindsBundles(t *testing.T) {
	dir := t.TempDir()
	files := []struct {
		path string
		data []byte
	}{
		{"a.nar", testutil.NarFixture(t, 1, 0)},
		{filepath.Join("nested", "minifi"), testutil.NativeFixture(nil, 64)},
		{"notes.txt", []byte("notes")},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", f.path, err)
		}
	}

	bundles, err := NewFileSystemScanner().Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(bundles) != 2 {
		t.Fatalf("Expected 2 bundles, got %d", len(bundles))
	}

	types := map[string]models.BundleType{}
	for _, b := range bundles {
		types[filepath.Base(b.Path)] = b.Type
		if b.Size <= 0 {
			t.Errorf("Bundle %s has size %d", b.Path, b.Size)
		}
	}
	if types["a.nar"] != models.BundleTypeNAR {
		t.Errorf("Expected a.nar to be a NAR, got %s", types["a.nar"])
	}
	if types["minifi"] != models.BundleTypeMinifiCpp {
		t.Errorf("Expected minifi to be a MiNiFi C++ bundle, got %s", types["minifi"])
	}
}

func TestScanHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.nar"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileSystemScanner().Scan(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
