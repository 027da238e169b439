package extractor

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/scanner"
	"github.com/ralt/bundlemeta/internal/utils"
	"github.com/sirupsen/logrus"
)

// ExtractFile extracts the bundle stored at path. An unknown bundleType is
// detected from the file content. Gzip, zstd and xz wrapped files are
// decompressed on the fly, which rules out the reverse search.
func ExtractFile(path string, bundleType models.BundleType, preferReverse bool) (*models.Bundle, error) {
	detected, compression, err := scanner.DetectBundleType(path)
	if err != nil {
		return nil, &models.BundleError{Type: models.ErrFileOp, Bundle: path, Err: err}
	}
	if bundleType == models.BundleTypeUnknown {
		bundleType = detected
	}

	ex, err := ForType(bundleType, preferReverse)
	if err != nil {
		return nil, tagged(err, path)
	}

	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return nil, &models.BundleError{Type: models.ErrFileOp, Bundle: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &models.BundleError{Type: models.ErrFileOp, Bundle: path, Err: err}
	}
	defer f.Close()

	var src io.Reader = f
	if compression != models.CompressionNone {
		dr, err := utils.NewDecompressingReader(bufio.NewReader(f), compression)
		if err != nil {
			return nil, &models.BundleError{Type: models.ErrFileOp, Bundle: path, Err: err}
		}
		defer dr.Close()
		src = dr
	}

	logrus.Debugf("Extracting %s bundle %s", bundleType, path)
	details, err := ex.Extract(src)
	if err != nil {
		return nil, tagged(err, path)
	}

	return &models.Bundle{
		Path:        path,
		Filename:    filepath.Base(path),
		Type:        bundleType,
		Compression: compression,
		Size:        checksums.Size,
		SHA256Sum:   checksums.SHA256,
		Details:     details,
	}, nil
}

// tagged records path on a BundleError that does not name its bundle yet
func tagged(err error, path string) error {
	if be, ok := err.(*models.BundleError); ok && be.Bundle == "" {
		be.Bundle = path
	}
	return err
}
