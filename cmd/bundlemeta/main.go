package main

import (
	"errors"
	"os"

	"github.com/ralt/bundlemeta/internal/cli"
	"github.com/ralt/bundlemeta/internal/models"
	"github.com/sirupsen/logrus"
)

func main() {
	// Setup logging format
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var be *models.BundleError
		if errors.As(err, &be) {
			logrus.WithField("kind", be.Type.String()).Error(err)
		} else {
			logrus.Error(err)
		}
		os.Exit(1)
	}
}
