package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"visionbatch/internal/config"
	"visionbatch/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute; nil when the environment could not be loaded.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "visionbatch",
	Short: "Batch OCR for local images using Google Cloud Vision",
	Long: `visionbatch reads image files from disk, sends them to the Google Cloud
Vision API in a single batched TEXT_DETECTION request and prints the
detected text.

Use the ocr subcommand to process images.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("visionbatch executed without subcommand")

		cmd.Help()
	},
}

// Execute runs the root command with the loaded configuration.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
