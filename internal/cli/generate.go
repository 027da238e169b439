package cli

import (
	"context"
	"fmt"

	"github.com/ralt/bundlemeta/internal/catalog"
	"github.com/ralt/bundlemeta/internal/extractor"
	"github.com/ralt/bundlemeta/internal/models"
	"github.com/ralt/bundlemeta/internal/scanner"
	"github.com/ralt/bundlemeta/internal/signer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var config models.CatalogConfig

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an extension catalog",
		Long: `Scans input directory for bundles, extracts their metadata and writes
an extension catalog with per-bundle documentation and a JSON index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateCatalogConfig(&config); err != nil {
				return err
			}

			logrus.Info("Starting catalog generation...")
			logrus.Debugf("Configuration: %+v", redacted(config))

			return runGeneration(cmd.Context(), &config)
		},
	}

	// Input/Output flags
	cmd.Flags().StringVarP(&config.InputDir, "input-dir", "i", ".", "Input directory to scan")
	cmd.Flags().StringVarP(&config.OutputDir, "output-dir", "o", "./catalog", "Output directory")

	// GPG signing flags
	cmd.Flags().StringVarP(&config.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key")
	cmd.Flags().StringVarP(&config.GPGPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")

	cmd.Flags().BoolVar(&config.ReverseSearch, "reverse-search", false, "Search MiNiFi C++ binaries for their bundle from the end of the file")
	cmd.Flags().BoolVar(&config.Incremental, "incremental", false, "Add bundles to an existing catalog instead of replacing its index")

	return cmd
}

func validateCatalogConfig(config *models.CatalogConfig) error {
	if config.InputDir == "" {
		return &models.BundleError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("input-dir is required"),
		}
	}

	if config.OutputDir == "" {
		return &models.BundleError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("output-dir is required"),
		}
	}

	if config.GPGPassphrase != "" && config.GPGKeyPath == "" {
		return &models.BundleError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("gpg-passphrase given without gpg-key"),
		}
	}

	return nil
}

// redacted hides the passphrase from debug output
func redacted(config models.CatalogConfig) models.CatalogConfig {
	if config.GPGPassphrase != "" {
		config.GPGPassphrase = "***"
	}
	return config
}

func runGeneration(ctx context.Context, config *models.CatalogConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Scan for bundles
	logrus.Infof("Scanning directory: %s", config.InputDir)
	sc := scanner.NewFileSystemScanner()
	scanned, err := sc.Scan(ctx, config.InputDir)
	if err != nil {
		return &models.BundleError{
			Type: models.ErrFileOp,
			Err:  fmt.Errorf("failed to scan directory: %w", err),
		}
	}

	// Step 2: Extract each bundle, skipping the ones that fail
	var bundles []models.Bundle
	for _, s := range scanned {
		logrus.Debugf("Extracting %s bundle: %s", s.Type, s.Path)

		b, err := extractor.ExtractFile(s.Path, s.Type, config.ReverseSearch)
		if err != nil {
			logrus.Warnf("Failed to extract %s: %v", s.Path, err)
			continue
		}
		bundles = append(bundles, *b)
	}

	if len(bundles) == 0 && !config.Incremental {
		logrus.Warn("No bundles found in input directory")
		return nil
	}

	// Step 3: Merge with the existing catalog
	if config.Incremental {
		existing, err := catalog.ParseExistingIndex(config.OutputDir)
		if err != nil {
			logrus.Infof("Starting a new catalog: %v", err)
		} else {
			logrus.Infof("Found %d bundles in existing catalog", len(existing))
			bundles = catalog.Merge(existing, bundles)
		}
	}

	if err := catalog.ValidateBundles(bundles); err != nil {
		return &models.BundleError{
			Type: models.ErrInvalidBundle,
			Err:  fmt.Errorf("bundle validation failed: %w", err),
		}
	}

	// Step 4: Initialize signer
	var gpgSigner signer.Signer
	if config.GPGKeyPath != "" {
		gpgSigner, err = signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return &models.BundleError{
				Type: models.ErrSigning,
				Err:  fmt.Errorf("failed to initialize GPG signer: %w", err),
			}
		}
		logrus.Info("GPG signer initialized")
	}

	// Step 5: Write the catalog
	if err := catalog.NewGenerator(gpgSigner).Generate(ctx, config, bundles); err != nil {
		if models.IsErrorType(err, models.ErrSigning) {
			return err
		}
		return &models.BundleError{
			Type: models.ErrCatalogGen,
			Err:  fmt.Errorf("failed to generate catalog: %w", err),
		}
	}

	logrus.Info("Catalog generation completed successfully!")
	logrus.Infof("Output directory: %s", config.OutputDir)

	return nil
}
