package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ralt/bundlemeta/internal/extractor"
	"github.com/ralt/bundlemeta/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// report is what inspect prints for one bundle
type report struct {
	File              string                    `json:"file" yaml:"file"`
	Type              models.BundleType         `json:"type" yaml:"type"`
	Size              int64                     `json:"size" yaml:"size"`
	SHA256            string                    `json:"sha256" yaml:"sha256"`
	Coordinate        models.BundleCoordinate   `json:"coordinate" yaml:"coordinate"`
	Dependencies      []models.BundleCoordinate `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	SystemAPIVersion  string                    `json:"systemApiVersion" yaml:"systemApiVersion"`
	Build             models.BuildDetails       `json:"build" yaml:"build"`
	Extensions        []models.ExtensionDetails `json:"extensions" yaml:"extensions"`
	AdditionalDetails []string                  `json:"additionalDetails,omitempty" yaml:"additionalDetails,omitempty"`
}

func newReport(path string, b *models.Bundle) report {
	r := report{
		File:             path,
		Type:             b.Type,
		Size:             b.Size,
		SHA256:           b.SHA256Sum,
		Coordinate:       b.Details.Coordinate,
		Dependencies:     b.Details.Dependencies,
		SystemAPIVersion: b.Details.SystemAPIVersion,
		Build:            b.Details.Build,
		Extensions:       b.Details.Extensions,
	}
	for name := range b.Details.AdditionalDetails {
		r.AdditionalDetails = append(r.AdditionalDetails, name)
	}
	sort.Strings(r.AdditionalDetails)
	return r
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var config models.InspectConfig

	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the metadata of bundle files",
		Long: `Extracts each bundle and prints its coordinate, dependency, build
details, extensions and additional details pages.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Files = args
			bundleType, err := validateInspectConfig(&config)
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), &config, bundleType)
		},
	}

	cmd.Flags().StringVarP(&config.Type, "type", "t", "auto", "Bundle type (auto, nar, minifi-cpp)")
	cmd.Flags().StringVarP(&config.Format, "format", "f", "yaml", "Output format (yaml, json)")
	cmd.Flags().BoolVar(&config.ReverseSearch, "reverse-search", false, "Search MiNiFi C++ binaries for their bundle from the end of the file")

	return cmd
}

func validateInspectConfig(config *models.InspectConfig) (models.BundleType, error) {
	if len(config.Files) == 0 {
		return models.BundleTypeUnknown, &models.BundleError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("at least one file is required"),
		}
	}

	switch config.Format {
	case "yaml", "json":
	default:
		return models.BundleTypeUnknown, &models.BundleError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unknown output format %q", config.Format),
		}
	}

	return models.ParseBundleType(config.Type)
}

func runInspect(out io.Writer, config *models.InspectConfig, bundleType models.BundleType) error {
	var reports []report
	failed := 0
	for _, path := range config.Files {
		b, err := extractor.ExtractFile(path, bundleType, config.ReverseSearch)
		if err != nil {
			logrus.Errorf("Failed to inspect %s: %v", path, err)
			failed++
			continue
		}
		reports = append(reports, newReport(path, b))
	}

	if err := writeReports(out, config.Format, reports); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d bundles could not be inspected", failed, len(config.Files))
	}
	return nil
}

func writeReports(out io.Writer, format string, reports []report) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if reports == nil {
			reports = []report{}
		}
		return enc.Encode(reports)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return enc.Close()
}
