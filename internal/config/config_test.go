package config

import (
	"strings"
	"testing"
	"time"

	"visionbatch/internal/credentials"
	"visionbatch/internal/ocr"
)

var configKeys = []string{
	"GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS",
	"VISION_TRANSPORT", "VISION_ENDPOINT", "VISION_CONNECT_TIMEOUT", "VISION_READ_TIMEOUT", "VISION_BATCH_POLICY",
	"GOOGLE_SHEET_URL", "GOOGLE_SHEET_WORKSHEET",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_TIME_FORMAT", "LOG_OUTPUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ocrCfg := cfg.GetOCRConfig()
	if ocrCfg.Transport != ocr.TransportREST || ocrCfg.Policy != ocr.PolicyStop {
		t.Errorf("ocr config = %+v", ocrCfg)
	}
	if ocrCfg.ConnectTimeout != 3*time.Minute || ocrCfg.ReadTimeout != 3*time.Minute {
		t.Errorf("timeouts = %v/%v, want 3m", ocrCfg.ConnectTimeout, ocrCfg.ReadTimeout)
	}
	if cfg.GoogleSheetWorksheet != "OCR" {
		t.Errorf("worksheet = %q", cfg.GoogleSheetWorksheet)
	}
	if lc := cfg.GetLoggerConfig(); lc.Level != "info" || lc.Output != "stderr" {
		t.Errorf("logger config = %+v", lc)
	}
	if cfg.HasExplicitCredentials() {
		t.Error("no credentials were set")
	}
	if _, ok := cfg.CredentialProvider().(credentials.Default); !ok {
		t.Error("expected Application Default Credentials provider")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VISION_TRANSPORT", "grpc")
	t.Setenv("VISION_BATCH_POLICY", "continue")
	t.Setenv("VISION_CONNECT_TIMEOUT", "10s")
	t.Setenv("VISION_READ_TIMEOUT", "1m30s")
	t.Setenv("VISION_ENDPOINT", "eu-vision.googleapis.com:443")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ocrCfg := cfg.GetOCRConfig()
	if ocrCfg.Transport != ocr.TransportGRPC || ocrCfg.Policy != ocr.PolicyContinue {
		t.Errorf("ocr config = %+v", ocrCfg)
	}
	if ocrCfg.ConnectTimeout != 10*time.Second || ocrCfg.ReadTimeout != 90*time.Second {
		t.Errorf("timeouts = %v/%v", ocrCfg.ConnectTimeout, ocrCfg.ReadTimeout)
	}
	if ocrCfg.Endpoint != "eu-vision.googleapis.com:443" {
		t.Errorf("endpoint = %q", ocrCfg.Endpoint)
	}
	if p, ok := cfg.CredentialProvider().(credentials.File); !ok || p.Path != "/secrets/sa.json" {
		t.Errorf("provider = %#v", cfg.CredentialProvider())
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"VISION_TRANSPORT", "carrier-pigeon", "VISION_TRANSPORT"},
		{"VISION_BATCH_POLICY", "retry", "VISION_BATCH_POLICY"},
		{"VISION_CONNECT_TIMEOUT", "soon", "VISION_CONNECT_TIMEOUT"},
		{"VISION_READ_TIMEOUT", "-5s", "VISION_READ_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
