// Package catalog writes extracted bundles out as a browsable extension
// catalog: per-bundle metadata and docs plus a signed JSON index.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/signer"
	"github.com/ralt/bundlemeta/internal/utils"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Generator writes catalogs, signing the index when it has a signer
type Generator struct {
	signer signer.Signer
}

// NewGenerator creates a catalog generator. s may be nil for an unsigned catalog.
func NewGenerator(s signer.Signer) *Generator {
	return &Generator{
		signer: s,
	}
}

// Generate writes bundles to config.OutputDir. Bundles without a Path come
// from an existing index; only their index entries are rewritten.
func (g *Generator) Generate(ctx context.Context, config *models.CatalogConfig, bundles []models.Bundle) error {
	logrus.Info("Generating extension catalog...")

	if err := utils.EnsureDir(config.OutputDir); err != nil {
		return err
	}

	for i := range bundles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if bundles[i].Path == "" {
			continue
		}
		if err := g.writeBundle(config.OutputDir, &bundles[i]); err != nil {
			return fmt.Errorf("failed to write %s: %w", bundles[i].Details.Coordinate, err)
		}
	}

	idx, err := BuildIndex(bundles)
	if err != nil {
		return err
	}
	indexData, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	indexData = append(indexData, '\n')

	if err := utils.WriteFile(filepath.Join(config.OutputDir, indexFile), indexData, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	gz, err := utils.GzipCompress(indexData)
	if err != nil {
		return fmt.Errorf("failed to compress index: %w", err)
	}
	if err := utils.WriteFile(filepath.Join(config.OutputDir, indexGzFile), gz, 0644); err != nil {
		return fmt.Errorf("failed to write compressed index: %w", err)
	}

	if g.signer != nil {
		if err := g.sign(config.OutputDir, indexData); err != nil {
			return err
		}
		logrus.Info("Catalog signed successfully")
	}

	logrus.Infof("Extension catalog generated successfully (%d bundles)", len(bundles))
	return nil
}

// writeBundle copies the artifact and writes bundle.yaml, the descriptor
// and additional-details pages under the bundle's directory
func (g *Generator) writeBundle(outputDir string, b *models.Bundle) error {
	rel, err := bundleDir(b.Details.Coordinate)
	if err != nil {
		return err
	}
	dir := filepath.Join(outputDir, rel)
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}

	dstPath := filepath.Join(dir, b.Filename)
	needsCopy, err := utils.ShouldCopyBundle(b, b.Path, dstPath)
	if err != nil {
		return err
	}
	if needsCopy {
		if err := utils.CopyFile(b.Path, dstPath); err != nil {
			return fmt.Errorf("failed to copy bundle: %w", err)
		}
		logrus.Debugf("Copied %s to %s", b.Path, dstPath)
	}

	doc, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle.yaml: %w", err)
	}
	if err := utils.WriteFile(filepath.Join(dir, "bundle.yaml"), doc, 0644); err != nil {
		return err
	}

	if b.Details.DocsContent != "" {
		if err := utils.WriteFile(filepath.Join(dir, "extension-docs.xml"), []byte(b.Details.DocsContent), 0644); err != nil {
			return err
		}
	}

	for name, html := range b.Details.AdditionalDetails {
		if err := checkPathElement(name); err != nil {
			logrus.Warnf("Skipping additional details of %s: %v", b.Details.Coordinate, err)
			continue
		}
		path := filepath.Join(dir, "additional-details", name, "additionalDetails.html")
		if err := utils.WriteFile(path, []byte(html), 0644); err != nil {
			return err
		}
	}

	logrus.Infof("Catalogued %s (%d extensions)", b.Details.Coordinate, len(b.Details.Extensions))
	return nil
}

func (g *Generator) sign(outputDir string, indexData []byte) error {
	signature, err := g.signer.SignDetached(indexData)
	if err != nil {
		return &models.BundleError{Type: models.ErrSigning, Err: fmt.Errorf("failed to sign index: %w", err)}
	}
	if err := utils.WriteFile(filepath.Join(outputDir, signatureFile), signature, 0644); err != nil {
		return err
	}

	publicKey, err := g.signer.GetPublicKey()
	if err != nil {
		return &models.BundleError{Type: models.ErrSigning, Err: fmt.Errorf("failed to export public key: %w", err)}
	}
	return utils.WriteFile(filepath.Join(outputDir, publicKeyFile), publicKey, 0644)
}
