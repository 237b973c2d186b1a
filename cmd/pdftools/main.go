// Package main is the pdftools command: it serves the PDF tools over HTTP and
// offers offline helpers for scratch cleanup and page selections.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/pdftoolkit/internal/app"
	"github.com/Lllllllleong/pdftoolkit/internal/config"
	"github.com/Lllllllleong/pdftoolkit/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// cli holds the state shared by every subcommand.
type cli struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "pdftools",
		Short: "Merge, split and convert PDF and Word documents",
		Long: `pdftools serves a small web application that merges PDFs, splits a PDF
into single pages, converts PDF to Word and, when LibreOffice is installed,
Word to PDF. Generated files are written to a scratch directory and streamed
back as downloads.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: ./pdftools.yaml or ~/.config/pdftools/pdftools.yaml)")
	root.PersistentFlags().String("scratch-dir", "", "directory for uploads and generated files")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	c.bind(root.PersistentFlags().Lookup("scratch-dir"), config.KeyScratchDir)
	c.bind(root.PersistentFlags().Lookup("log-level"), config.KeyLogLevel)

	root.AddCommand(
		c.newServeCmd(),
		c.newSweepCmd(),
		newPagesCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and installs the logger.
func (c *cli) setup() (config.Config, error) {
	cfg, err := app.LoadConfig(c.v, c.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(cfg.LogLevel); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
