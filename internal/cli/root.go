package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bundlemeta",
		Short: "Extract metadata from NiFi extension bundles",
		Long: `Bundlemeta reads NiFi extension bundles and reports the coordinate,
build details and extensions each one declares, or writes them out as a
static, optionally signed extension catalog.

Supported bundle types:
  - NAR archives (.nar, optionally gzip/zstd/xz compressed)
  - MiNiFi C++ binaries with an appended bundle archive`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewInspectCmd())
	rootCmd.AddCommand(NewGenerateCmd())

	return rootCmd
}
