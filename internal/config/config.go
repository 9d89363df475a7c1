package config

import (
	"fmt"
	"os"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"

	"visionbatch/internal/credentials"
	"visionbatch/internal/logger"
	"visionbatch/internal/ocr"
)

type Config struct {
	// Google Cloud Credentials
	GoogleCredentials            string
	GoogleApplicationCredentials string

	// Vision API Configuration
	VisionTransport      string
	VisionEndpoint       string
	VisionConnectTimeout time.Duration
	VisionReadTimeout    time.Duration
	VisionBatchPolicy    string

	// Optional: Google Sheets export
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	connectTimeout, err := getDuration("VISION_CONNECT_TIMEOUT", ocr.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	readTimeout, err := getDuration("VISION_READ_TIMEOUT", ocr.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	config := &Config{
		GoogleCredentials:            getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		VisionTransport:              getEnv("VISION_TRANSPORT", string(ocr.TransportREST)),
		VisionEndpoint:               getEnv("VISION_ENDPOINT", ""),
		VisionConnectTimeout:         connectTimeout,
		VisionReadTimeout:            readTimeout,
		VisionBatchPolicy:            getEnv("VISION_BATCH_POLICY", string(ocr.PolicyStop)),
		GoogleSheetURL:               getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:         getEnv("GOOGLE_SHEET_WORKSHEET", "OCR"),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		LogFormat:                    getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:                getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:                    getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch ocr.Transport(c.VisionTransport) {
	case ocr.TransportREST, ocr.TransportGRPC:
	default:
		return fmt.Errorf("VISION_TRANSPORT must be %q or %q, got %q", ocr.TransportREST, ocr.TransportGRPC, c.VisionTransport)
	}
	switch ocr.BatchPolicy(c.VisionBatchPolicy) {
	case ocr.PolicyStop, ocr.PolicyContinue:
	default:
		return fmt.Errorf("VISION_BATCH_POLICY must be %q or %q, got %q", ocr.PolicyStop, ocr.PolicyContinue, c.VisionBatchPolicy)
	}
	if c.VisionConnectTimeout <= 0 {
		return fmt.Errorf("VISION_CONNECT_TIMEOUT must be positive")
	}
	if c.VisionReadTimeout <= 0 {
		return fmt.Errorf("VISION_READ_TIMEOUT must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetOCRConfig returns the Vision OCR service configuration
func (c *Config) GetOCRConfig() ocr.Config {
	cfg := ocr.DefaultConfig()
	cfg.Transport = ocr.Transport(c.VisionTransport)
	cfg.Endpoint = c.VisionEndpoint
	cfg.ConnectTimeout = c.VisionConnectTimeout
	cfg.ReadTimeout = c.VisionReadTimeout
	cfg.Policy = ocr.BatchPolicy(c.VisionBatchPolicy)
	return cfg
}

// HasExplicitCredentials reports whether credentials are set in the environment
// rather than left to Application Default Credentials discovery.
func (c *Config) HasExplicitCredentials() bool {
	return c.GoogleCredentials != "" || c.GoogleApplicationCredentials != ""
}

// CredentialProvider returns a provider scoped to the given APIs,
// defaulting to the Vision API scopes.
func (c *Config) CredentialProvider(scopes ...string) credentials.Provider {
	if len(scopes) == 0 {
		scopes = vision.DefaultAuthScopes()
	}
	return credentials.FromEnvironment(c.GoogleCredentials, c.GoogleApplicationCredentials, scopes...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
