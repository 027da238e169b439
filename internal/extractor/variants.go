package extractor

import (
	"io"

	"github.com/ralt/bundlemeta/internal/magic"
	"github.com/ralt/bundlemeta/internal/models"
)

// NewNAR returns the extractor for NAR archives
func NewNAR() *Extractor {
	return New()
}

// NewNative returns the extractor for MiNiFi C++ binaries, which carry
// their archive appended to an executable. The archive is found by its
// first local file header, searching from the end of seekable sources
// when preferReverse is set. Build timestamps may be epoch milliseconds.
func NewNative(preferReverse bool, opts ...Option) *Extractor {
	base := []Option{
		WithPreprocessor(func(r io.Reader) (io.Reader, error) {
			return magic.NewLocator(r, magic.ZipLocalFileHeader, preferReverse)
		}),
		WithTimestampParsers(StandardTimestamp, EpochMillisTimestamp),
	}
	return New(append(base, opts...)...)
}

// ForType selects the extractor for a declared bundle type
func ForType(t models.BundleType, preferReverse bool) (*Extractor, error) {
	switch t {
	case models.BundleTypeNAR:
		return NewNAR(), nil
	case models.BundleTypeMinifiCpp:
		return NewNative(preferReverse), nil
	default:
		return nil, models.NewError(models.ErrPrecondition, "no extractor for bundle type %s", t)
	}
}
