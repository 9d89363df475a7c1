package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"visionbatch/cmd"
	"visionbatch/internal/config"
	"visionbatch/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		// Use default logger config if main config fails
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting visionbatch")

	// A nil config makes commands reload it and report the error
	cmd.Execute(cfg)

	log.Debug().Msg("visionbatch finished")
	os.Exit(0)
}
