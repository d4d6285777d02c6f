package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "iaextract",
	Short: "Extract information-architecture models from PDF documents",
	Long: `iaextract rasterises a PDF, recovers its vector and OCR text,
segments each page into typed blocks, and fuses the two into a
translation-ready information-architecture model.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./docia.yaml or ~/.docia/docia.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(extractCmd)
}

func setupLogging() {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
