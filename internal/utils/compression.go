package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ulikunitz/xz"
)

// Magic bytes of the compression formats a bundle may be wrapped in
var (
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// DetectCompression identifies a compression wrapper from the first bytes of a file
func DetectCompression(header []byte) models.Compression {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return models.CompressionGzip
	case bytes.HasPrefix(header, zstdMagic):
		return models.CompressionZstd
	case bytes.HasPrefix(header, xzMagic):
		return models.CompressionXZ
	default:
		return models.CompressionNone
	}
}

// NewDecompressingReader undoes compression c on r. Closing the result
// does not close r.
func NewDecompressingReader(r io.Reader, c models.Compression) (io.ReadCloser, error) {
	switch c {
	case models.CompressionNone:
		return io.NopCloser(r), nil
	case models.CompressionGzip:
		return gzip.NewReader(r)
	case models.CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case models.CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
