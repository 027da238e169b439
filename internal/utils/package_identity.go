package utils

import (
	"github.com/ralt/bundlemeta/internal/models"
)

// BundleIdentity returns the key under which a bundle is catalogued
func BundleIdentity(b models.Bundle) string {
	if b.Details == nil {
		return b.Filename
	}
	return b.Details.Coordinate.Coordinate()
}

// DetectConflicts returns bundles from newBundles whose coordinate is
// already catalogued with different content
func DetectConflicts(existing, newBundles []models.Bundle) []models.Bundle {
	existingMap := make(map[string]string)
	for _, b := range existing {
		existingMap[BundleIdentity(b)] = b.SHA256Sum
	}

	var conflicts []models.Bundle
	for _, b := range newBundles {
		if digest, ok := existingMap[BundleIdentity(b)]; ok && digest != b.SHA256Sum {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}
