package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/utils"
)

const (
	indexFile     = "index.json"
	indexGzFile   = "index.json.gz"
	signatureFile = "index.json.asc"
	publicKeyFile = "KEY.asc"
	bundlesDir    = "bundles"
)

// Index is the content of index.json: one entry per catalogued bundle,
// sorted by coordinate
type Index struct {
	Bundles []IndexEntry `json:"bundles"`
}

// IndexEntry summarises a bundle without its descriptor text or
// additional-details pages, which live next to it in the catalog
type IndexEntry struct {
	Coordinate        models.BundleCoordinate   `json:"coordinate"`
	Type              models.BundleType         `json:"type"`
	Path              string                    `json:"path"`
	Size              int64                     `json:"size"`
	SHA256            string                    `json:"sha256"`
	SystemAPIVersion  string                    `json:"systemApiVersion"`
	Dependencies      []models.BundleCoordinate `json:"dependencies,omitempty"`
	Build             models.BuildDetails       `json:"build"`
	Extensions        []IndexExtension          `json:"extensions"`
	AdditionalDetails []string                  `json:"additionalDetails,omitempty"`
}

// IndexExtension is the searchable part of an extension
type IndexExtension struct {
	Name string               `json:"name"`
	Type models.ExtensionType `json:"type"`
	Tags []string             `json:"tags,omitempty"`
}

// bundleDir returns the catalog directory of a coordinate, relative to the
// output directory. Coordinates come from bundle manifests, so every part
// must be a single path element.
func bundleDir(c models.BundleCoordinate) (string, error) {
	for _, part := range []string{c.GroupID, c.ArtifactID, c.Version} {
		if err := checkPathElement(part); err != nil {
			return "", fmt.Errorf("coordinate %s: %w", c, err)
		}
	}
	return filepath.Join(bundlesDir, c.GroupID, c.ArtifactID, c.Version), nil
}

// checkPathElement rejects names that would resolve outside their parent directory
func checkPathElement(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%q is not a valid path element", name)
	case strings.ContainsAny(name, `/\`), filepath.VolumeName(name) != "":
		return fmt.Errorf("%q contains a path separator", name)
	}
	return nil
}

// BuildIndex converts bundles into their index entries
func BuildIndex(bundles []models.Bundle) (*Index, error) {
	idx := &Index{Bundles: make([]IndexEntry, 0, len(bundles))}
	for _, b := range bundles {
		d := b.Details
		dir, err := bundleDir(d.Coordinate)
		if err != nil {
			return nil, err
		}
		entry := IndexEntry{
			Coordinate:       d.Coordinate,
			Type:             b.Type,
			Path:             filepath.ToSlash(filepath.Join(dir, b.Filename)),
			Size:             b.Size,
			SHA256:           b.SHA256Sum,
			SystemAPIVersion: d.SystemAPIVersion,
			Dependencies:     d.Dependencies,
			Build:            d.Build,
			Extensions:       make([]IndexExtension, 0, len(d.Extensions)),
		}
		for _, e := range d.Extensions {
			entry.Extensions = append(entry.Extensions, IndexExtension{Name: e.Name, Type: e.Type, Tags: e.Tags})
		}
		for name := range d.AdditionalDetails {
			entry.AdditionalDetails = append(entry.AdditionalDetails, name)
		}
		sort.Strings(entry.AdditionalDetails)
		idx.Bundles = append(idx.Bundles, entry)
	}

	sort.Slice(idx.Bundles, func(i, j int) bool {
		return idx.Bundles[i].Coordinate.Coordinate() < idx.Bundles[j].Coordinate.Coordinate()
	})
	return idx, nil
}

// ParseExistingIndex reads the index of a previously generated catalog and
// returns its bundles. The returned bundles have no Path: their artifacts
// and per-bundle files are already in place.
func ParseExistingIndex(outputDir string) ([]models.Bundle, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, indexFile))
	if err != nil {
		// Fall back to the compressed copy
		gz, gzErr := os.ReadFile(filepath.Join(outputDir, indexGzFile))
		if gzErr != nil {
			return nil, fmt.Errorf("no existing catalog index found in %s: %w", outputDir, err)
		}
		if data, err = utils.GzipDecompress(gz); err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", indexGzFile, err)
		}
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", indexFile, err)
	}

	bundles := make([]models.Bundle, 0, len(idx.Bundles))
	for _, entry := range idx.Bundles {
		details := &models.BundleDetails{
			Coordinate:       entry.Coordinate,
			Dependencies:     entry.Dependencies,
			SystemAPIVersion: entry.SystemAPIVersion,
			Build:            entry.Build,
			Extensions:       make([]models.ExtensionDetails, 0, len(entry.Extensions)),
		}
		for _, e := range entry.Extensions {
			details.Extensions = append(details.Extensions, models.ExtensionDetails{Name: e.Name, Type: e.Type, Tags: e.Tags})
		}
		if len(entry.AdditionalDetails) > 0 {
			details.AdditionalDetails = make(map[string]string, len(entry.AdditionalDetails))
			for _, name := range entry.AdditionalDetails {
				details.AdditionalDetails[name] = ""
			}
		}

		bundles = append(bundles, models.Bundle{
			Filename:  filepath.Base(entry.Path),
			Type:      entry.Type,
			Size:      entry.Size,
			SHA256Sum: entry.SHA256,
			Details:   details,
		})
	}
	return bundles, nil
}
