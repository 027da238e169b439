package catalog

import (
	"fmt"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/utils"
	"github.com/sirupsen/logrus"
)

// ValidateBundles checks that every bundle was extracted, that its
// coordinate can be used as a catalog path and that no two different
// artifacts claim the same coordinate
func ValidateBundles(bundles []models.Bundle) error {
	seen := make(map[string]models.Bundle)
	for _, b := range bundles {
		if b.Details == nil {
			return fmt.Errorf("bundle %s has no extracted details", b.Filename)
		}
		if _, err := bundleDir(b.Details.Coordinate); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Filename, err)
		}
		key := utils.BundleIdentity(b)
		if prev, ok := seen[key]; ok && prev.SHA256Sum != b.SHA256Sum {
			return fmt.Errorf("coordinate %s is claimed by both %s and %s", key, prev.Filename, b.Filename)
		}
		seen[key] = b
	}
	return nil
}

// Merge adds newBundles to the bundles of an existing catalog. A new
// bundle replaces an existing one with the same coordinate; when their
// digests differ this is logged as a conflict.
func Merge(existing, newBundles []models.Bundle) []models.Bundle {
	for _, c := range utils.DetectConflicts(existing, newBundles) {
		logrus.Warnf("Bundle %s changed content, replacing catalogued version with %s", utils.BundleIdentity(c), c.Filename)
	}

	replaced := make(map[string]bool, len(newBundles))
	for _, b := range newBundles {
		replaced[utils.BundleIdentity(b)] = true
	}

	merged := make([]models.Bundle, 0, len(existing)+len(newBundles))
	for _, b := range existing {
		if !replaced[utils.BundleIdentity(b)] {
			merged = append(merged, b)
		}
	}
	seen := make(map[string]bool, len(newBundles))
	for _, b := range newBundles {
		key := utils.BundleIdentity(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, b)
	}
	return merged
}
