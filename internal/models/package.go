package models

// BundleType represents the packaging of a bundle artifact
type BundleType int

const (
	BundleTypeUnknown BundleType = iota
	BundleTypeNAR
	BundleTypeMinifiCpp
)

// String returns the string representation of BundleType
func (bt BundleType) String() string {
	switch bt {
	case BundleTypeNAR:
		return "nar"
	case BundleTypeMinifiCpp:
		return "minifi-cpp"
	default:
		return "unknown"
	}
}

// ParseBundleType maps a flag value onto a BundleType. "auto" and "" map to
// BundleTypeUnknown, meaning the caller should detect it.
func ParseBundleType(s string) (BundleType, error) {
	switch s {
	case "", "auto", "unknown":
		return BundleTypeUnknown, nil
	case "nar":
		return BundleTypeNAR, nil
	case "minifi-cpp", "cpp":
		return BundleTypeMinifiCpp, nil
	default:
		return BundleTypeUnknown, NewError(ErrInvalidConfig, "unknown bundle type %q", s)
	}
}

// MarshalText renders the type by name in JSON and YAML output
func (bt BundleType) MarshalText() ([]byte, error) {
	return []byte(bt.String()), nil
}

// UnmarshalText parses a type rendered by MarshalText
func (bt *BundleType) UnmarshalText(text []byte) error {
	parsed, err := ParseBundleType(string(text))
	if err != nil {
		return err
	}
	*bt = parsed
	return nil
}

// Compression is an optional wrapper around a bundle artifact
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionXZ
)

// String returns the string representation of Compression
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

// Bundle pairs an artifact file and its digest with the extracted details
type Bundle struct {
	// File information
	Path        string      `json:"-" yaml:"-"`
	Filename    string      `json:"filename" yaml:"filename"`
	Type        BundleType  `json:"type" yaml:"type"`
	Compression Compression `json:"-" yaml:"-"`
	Size        int64       `json:"size" yaml:"size"`
	SHA256Sum   string      `json:"sha256" yaml:"sha256"`

	Details *BundleDetails `json:"details" yaml:"details"`
}
