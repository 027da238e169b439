package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct{}

var _ Scanner = (*FileSystemScanner)(nil)

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan recursively scans a directory for bundles
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedBundle, error) {
	var bundles []ScannedBundle

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			return nil
		}

		bundleType, compression, err := s.DetectType(path)
		if err != nil {
			logrus.Warnf("Failed to detect type for %s: %v", path, err)
			return nil
		}

		if bundleType == models.BundleTypeUnknown {
			return nil
		}

		logrus.Debugf("Found %s bundle (%s compression): %s", bundleType, compression, path)

		bundles = append(bundles, ScannedBundle{
			Path:        path,
			Type:        bundleType,
			Compression: compression,
			Size:        info.Size(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Infof("Found %d bundles in %s", len(bundles), dir)
	return bundles, nil
}

// DetectType determines the bundle type and compression of a file
func (s *FileSystemScanner) DetectType(path string) (models.BundleType, models.Compression, error) {
	return DetectBundleType(path)
}
