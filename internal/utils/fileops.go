package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ralt/bundlemeta/internal/models"
)

// CopyFile copies a file from src to dst
func CopyFile(src, dst string) error {
	// Create destination directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	// Sync to disk
	return dstFile.Sync()
}

// WriteFile writes data to a file, creating directories as needed
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// EnsureDir ensures a directory exists, creating it if necessary
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ShouldCopyBundle reports whether the artifact at srcPath has to be copied
// into the catalog at dstPath. A destination with the same size and
// digest as the bundle is left alone.
func ShouldCopyBundle(b *models.Bundle, srcPath, dstPath string) (bool, error) {
	srcPath = filepath.Clean(srcPath)
	dstPath = filepath.Clean(dstPath)
	if srcPath == dstPath {
		return false, nil
	}

	dstInfo, err := os.Stat(dstPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("cannot stat destination: %w", err)
	}

	if dstInfo.Size() != b.Size {
		return true, nil
	}
	if b.SHA256Sum == "" {
		return true, nil
	}

	dstChecksums, err := CalculateChecksums(dstPath)
	if err != nil {
		// Can't calculate checksums, copy to be safe
		return true, nil
	}
	return dstChecksums.SHA256 != b.SHA256Sum, nil
}
