// Package main is the fileconv command line: it runs the same conversion
// pipeline as the API against local files.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"fileconv/internal/config"
	"fileconv/internal/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fileconv",
	Short: "Convert office documents, images and PDFs",
	Long: `fileconv converts files between office, image and PDF formats using
LibreOffice, Ghostscript and Poppler. The API server exposes the same
conversions over HTTP; this CLI runs them against local files.

Settings are read from fileconv.yaml and the environment, like the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fileconv.yaml when present)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log pipeline steps to stderr")
}

// loadConfig reads settings the way the server does and builds a stderr logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:       level,
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "fileconv-cli",
	})
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
