package models

// CatalogConfig contains configuration for catalog generation
type CatalogConfig struct {
	// Input/Output
	InputDir  string
	OutputDir string

	// Signing
	GPGKeyPath    string
	GPGPassphrase string

	// Extraction
	ReverseSearch bool // Search native binaries from the end of the file

	// Incremental mode
	Incremental bool // Merge new bundles into an existing index instead of replacing it
}

// InspectConfig contains configuration for the inspect command
type InspectConfig struct {
	Files         []string
	Type          string // auto, nar or minifi-cpp
	Format        string // yaml or json
	ReverseSearch bool
}
