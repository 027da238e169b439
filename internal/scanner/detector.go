package scanner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/utils"
)

const headerLen = 512

// Magic bytes for bundle detection
var (
	// NARs are ZIP archives starting with a local file header
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

	// MiNiFi C++ bundles are executables
	elfMagic = []byte{0x7F, 'E', 'L', 'F'}
	peMagic  = []byte("MZ")

	machOMagics = [][]byte{
		{0xFE, 0xED, 0xFA, 0xCE},
		{0xFE, 0xED, 0xFA, 0xCF},
		{0xCE, 0xFA, 0xED, 0xFE},
		{0xCF, 0xFA, 0xED, 0xFE},
		{0xCA, 0xFE, 0xBA, 0xBE}, // universal
	}
)

// DetectBundleType determines the bundle type from magic bytes, falling
// back to the .nar extension. A gzip, zstd or xz wrapper is looked through.
func DetectBundleType(path string) (models.BundleType, models.Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.BundleTypeUnknown, models.CompressionNone, err
	}
	defer f.Close()

	header, err := readHeader(f)
	if err != nil {
		return models.BundleTypeUnknown, models.CompressionNone, err
	}

	compression := utils.DetectCompression(header)
	if compression != models.CompressionNone {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return models.BundleTypeUnknown, compression, err
		}
		dr, err := utils.NewDecompressingReader(f, compression)
		if err != nil {
			return models.BundleTypeUnknown, compression, err
		}
		defer dr.Close()
		if header, err = readHeader(dr); err != nil {
			return models.BundleTypeUnknown, compression, err
		}
	}

	return detectFromHeader(header, path), compression, nil
}

func detectFromHeader(header []byte, path string) models.BundleType {
	// Magic bytes win over the file name
	if bytes.HasPrefix(header, zipMagic) {
		return models.BundleTypeNAR
	}
	if bytes.HasPrefix(header, elfMagic) || bytes.HasPrefix(header, peMagic) {
		return models.BundleTypeMinifiCpp
	}
	for _, m := range machOMagics {
		if bytes.HasPrefix(header, m) {
			return models.BundleTypeMinifiCpp
		}
	}

	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".gz", ".zst", ".xz"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if filepath.Ext(name) == ".nar" {
		return models.BundleTypeNAR
	}

	return models.BundleTypeUnknown
}

// readHeader reads up to headerLen bytes for magic byte detection
func readHeader(r io.Reader) ([]byte, error) {
	header := make([]byte, headerLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return header[:n], nil
}
