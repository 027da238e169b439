package scanner

import (
	"context"

	"github.com/ralt/bundlemeta/internal/models"
)

// ScannedBundle represents a bundle artifact found during scanning
type ScannedBundle struct {
	Path        string
	Type        models.BundleType
	Compression models.Compression
	Size        int64
}

// Scanner interface for detecting and scanning bundles
type Scanner interface {
	// Scan recursively scans a directory for bundles
	Scan(ctx context.Context, dir string) ([]ScannedBundle, error)

	// DetectType determines the bundle type and compression of a file
	DetectType(path string) (models.BundleType, models.Compression, error)
}
