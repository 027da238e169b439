// Package extractor turns a bundle artifact into its BundleDetails: the
// coordinate and build details from the manifest, the extensions from the
// extension-docs descriptor and any additional-details pages.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ralt/bundlemeta/internal/extensiondocs"
	"github.com/ralt/bundlemeta/internal/jar"
	"github.com/ralt/bundlemeta/internal/models"
	"github.com/sirupsen/logrus"
)

// ManifestEntry names a manifest attribute read during extraction
type ManifestEntry string

const (
	NarGroup             ManifestEntry = "Nar-Group"
	NarID                ManifestEntry = "Nar-Id"
	NarVersion           ManifestEntry = "Nar-Version"
	NarDependencyGroup   ManifestEntry = "Nar-Dependency-Group"
	NarDependencyID      ManifestEntry = "Nar-Dependency-Id"
	NarDependencyVersion ManifestEntry = "Nar-Dependency-Version"
	BuildBranch          ManifestEntry = "Build-Branch"
	BuildTag             ManifestEntry = "Build-Tag"
	BuildRevision        ManifestEntry = "Build-Revision"
	BuildTimestamp       ManifestEntry = "Build-Timestamp"
	BuildJdk             ManifestEntry = "Build-Jdk"
	BuiltBy              ManifestEntry = "Built-By"
)

var additionalDetailsPattern = regexp.MustCompile(`^META-INF/docs/additional-details/(.+)/additionalDetails\.html$`)

// Preprocessor repositions a raw stream at the start of the archive
type Preprocessor func(io.Reader) (io.Reader, error)

// Extractor reads bundle metadata from an archive stream. The zero value
// is not usable; build one with New, NewNAR, NewNative or ForType.
type Extractor struct {
	preprocess Preprocessor
	timestamps []TimestampParser
}

// Option configures an Extractor
type Option func(*Extractor)

// WithPreprocessor runs p on every stream before it is read as an archive
func WithPreprocessor(p Preprocessor) Option {
	return func(e *Extractor) {
		e.preprocess = p
	}
}

// WithTimestampParsers sets the build timestamp formats, tried in order
func WithTimestampParsers(parsers ...TimestampParser) Option {
	return func(e *Extractor) {
		e.timestamps = parsers
	}
}

// New returns an extractor for plain archives that accepts only the
// standard timestamp format, as modified by opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{timestamps: []TimestampParser{StandardTimestamp}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads r to the end of the archive and returns what it declares.
// r is not closed.
func (e *Extractor) Extract(r io.Reader) (*models.BundleDetails, error) {
	if r == nil {
		return nil, models.NewError(models.ErrPrecondition, "source stream is nil")
	}
	if e.preprocess != nil {
		var err error
		if r, err = e.preprocess(r); err != nil {
			return nil, err
		}
	}

	jr, err := jar.NewReader(r)
	if err != nil {
		return nil, models.NewError(models.ErrMissingManifest, "failed to read manifest: %w", err)
	}
	defer jr.Close()

	manifest := jr.Manifest()
	if manifest == nil {
		return nil, models.NewError(models.ErrMissingManifest, "bundle has no manifest")
	}

	details := models.BundleDetails{AdditionalDetails: make(map[string]string)}
	if details.Coordinate, err = coordinate(manifest); err != nil {
		return nil, err
	}
	if strings.TrimSpace(manifest.Value(string(NarDependencyID))) != "" {
		dep := models.BundleCoordinate{
			GroupID:    manifest.Value(string(NarDependencyGroup)),
			ArtifactID: manifest.Value(string(NarDependencyID)),
			Version:    manifest.Value(string(NarDependencyVersion)),
		}
		details.Dependencies = []models.BundleCoordinate{dep}
	}
	if details.Build, err = e.buildDetails(manifest); err != nil {
		return nil, err
	}

	if err := readEntries(jr, &details); err != nil {
		return nil, err
	}

	valid, err := models.NewBundleDetails(details)
	if err != nil {
		return nil, &models.BundleError{Type: models.ErrInvalidBundle, Bundle: details.Coordinate.Coordinate(), Err: err}
	}
	return valid, nil
}

// readEntries walks the rest of the archive collecting the descriptor and
// additional-details pages into d
func readEntries(jr *jar.Reader, d *models.BundleDetails) error {
	found := false
	for {
		entry, err := jr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read bundle entries: %w", err)
		}

		if entry.Name == extensiondocs.DescriptorPath {
			if found {
				logrus.Warnf("Ignoring duplicate %s in %s", entry.Name, d.Coordinate)
				continue
			}
			content, err := io.ReadAll(jr)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", entry.Name, err)
			}
			docs, err := extensiondocs.Parse(bytes.NewReader(content))
			if err != nil {
				return err
			}
			d.DocsContent = string(content)
			d.SystemAPIVersion = docs.SystemAPIVersion
			d.Extensions = docs.Extensions
			found = true
			logrus.Debugf("Found %d extensions in %s", len(docs.Extensions), d.Coordinate)
			continue
		}

		if m := additionalDetailsPattern.FindStringSubmatch(entry.Name); m != nil {
			content, err := io.ReadAll(jr)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", entry.Name, err)
			}
			d.AdditionalDetails[m[1]] = string(content)
		}
	}

	if !found {
		return models.NewError(models.ErrMissingExtensionDocs,
			"bundle %s has no %s; it needs to be rebuilt with an up-to-date packaging tool",
			d.Coordinate, extensiondocs.DescriptorPath)
	}
	return nil
}

func coordinate(m *jar.Manifest) (models.BundleCoordinate, error) {
	var missing []string
	value := func(key ManifestEntry) string {
		v := strings.TrimSpace(m.Value(string(key)))
		if v == "" {
			missing = append(missing, string(key))
		}
		return v
	}

	c := models.BundleCoordinate{
		GroupID:    value(NarGroup),
		ArtifactID: value(NarID),
		Version:    value(NarVersion),
	}
	if len(missing) > 0 {
		return c, models.NewError(models.ErrMissingCoordinateAttribute,
			"manifest is missing %s", strings.Join(missing, ", "))
	}
	return c, nil
}

func (e *Extractor) buildDetails(m *jar.Manifest) (models.BuildDetails, error) {
	raw := strings.TrimSpace(m.Value(string(BuildTimestamp)))
	if raw == "" {
		return models.BuildDetails{}, models.NewError(models.ErrBadBuildTimestamp, "manifest is missing %s", BuildTimestamp)
	}
	built, err := parseTimestamp(raw, e.timestamps)
	if err != nil {
		return models.BuildDetails{}, err
	}

	build, err := models.NewBuildDetails(models.BuildDetails{
		Tool:     m.Value(string(BuildJdk)),
		Branch:   m.Value(string(BuildBranch)),
		Tag:      m.Value(string(BuildTag)),
		Revision: m.Value(string(BuildRevision)),
		BuiltBy:  m.Value(string(BuiltBy)),
		Built:    built,
	})
	if err != nil {
		return build, &models.BundleError{Type: models.ErrInvalidBundle, Err: err}
	}
	return build, nil
}
