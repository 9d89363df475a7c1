package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/api/sheets/v4"

	"visionbatch/internal/config"
	"visionbatch/internal/logger"
	"visionbatch/internal/ocr"
	gsheets "visionbatch/internal/sheets"
	"visionbatch/pkg/models"
	"visionbatch/pkg/services"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file...]",
	Short: "Extract text from images using Google Cloud Vision OCR",
	Long: `Send one or more images to the Google Cloud Vision API in a single batched
TEXT_DETECTION request and print the detected text.

Each image yields the full detected text. With --raw the pretty-printed JSON
of every text annotation (words with bounding boxes) is included as well.

Credentials, in order of precedence:
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file
  Application Default Credentials (gcloud auth application-default login)

Optional environment variables:
  VISION_TRANSPORT - rest (default) or grpc
  VISION_CONNECT_TIMEOUT / VISION_READ_TIMEOUT - default 3m each
  VISION_BATCH_POLICY - stop (default) or continue
  GOOGLE_SHEET_URL / GOOGLE_SHEET_WORKSHEET - append results to a Google Sheet`,
	Example: `  # Extract text from a single image
  visionbatch ocr receipt.jpg

  # Process every image in a folder and write JSON
  visionbatch ocr --dir ./scans --json -o results.json

  # Keep going when an image has no text, include raw annotations
  visionbatch ocr a.png b.png c.png --policy continue --raw

  # Append results to a Google Sheet
  visionbatch ocr --dir ./scans --sheet-url https://docs.google.com/spreadsheets/d/<id>/edit`,
	RunE: runOCR,
}

// OCROutput represents one image in the JSON output
type OCROutput struct {
	FileName    string `json:"file_name"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	Text        string `json:"text"`
	EntityCount int    `json:"entity_count"`
	RawJSON     string `json:"raw_json,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchOutput represents the JSON output structure when --json flag is used
type BatchOutput struct {
	Results            []OCROutput `json:"results"`
	Images             int         `json:"images"`
	Succeeded          int         `json:"succeeded"`
	Failed             int         `json:"failed"`
	ProcessedAt        time.Time   `json:"processed_at"`
	ProcessingDuration string      `json:"processing_duration"`
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".webp": true, ".tif": true, ".tiff": true, ".ico": true,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().String("dir", "", "Process every image in this folder (recursive)")
	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Bool("raw", false, "Include the raw annotation JSON of every detected entity")
	ocrCmd.Flags().Int("timeout", 600, "Processing timeout in seconds")
	ocrCmd.Flags().String("policy", "", "Batch policy when an image has no text: stop or continue (default from VISION_BATCH_POLICY)")
	ocrCmd.Flags().String("transport", "", "Vision API transport: rest or grpc (default from VISION_TRANSPORT)")
	ocrCmd.Flags().String("sheet-url", "", "Append results to this Google Sheet (default from GOOGLE_SHEET_URL)")
	ocrCmd.Flags().String("worksheet", "", "Worksheet name for --sheet-url (default from GOOGLE_SHEET_WORKSHEET)")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	// Get flags
	dir, _ := cmd.Flags().GetString("dir")
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	includeRaw, _ := cmd.Flags().GetBool("raw")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	policy, _ := cmd.Flags().GetString("policy")
	transport, _ := cmd.Flags().GetString("transport")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")

	cfg, err := resolveConfig(policy, transport)
	if err != nil {
		return err
	}
	if sheetURL == "" {
		sheetURL = cfg.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = cfg.GoogleSheetWorksheet
	}

	paths, err := collectImagePaths(args, dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images given: pass image files or --dir")
	}

	log.Info().
		Int("images", len(paths)).
		Str("dir", dir).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Str("policy", cfg.VisionBatchPolicy).
		Str("transport", cfg.VisionTransport).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR processing")

	validateImagePaths(paths, log)

	// Create context with timeout and signal handling
	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	ocrService := createOCRService(ctx, cfg, log)
	defer func() {
		if closeErr := ocrService.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close Vision client")
		}
	}()

	startTime := time.Now()
	results, batchErr := annotate(ctx, ocrService, paths)
	if batchErr != nil && len(results) == 0 {
		return handleOCRError(batchErr, log)
	}
	if batchErr != nil {
		log.Warn().
			Err(batchErr).
			Int("results", len(results)).
			Int("images", len(paths)).
			Msg("Batch stopped early, writing partial results")
	}

	output := buildBatchOutput(results, len(paths), includeRaw, startTime)
	log.Info().
		Int("images", len(paths)).
		Int("succeeded", output.Succeeded).
		Int("failed", output.Failed).
		Dur("duration", time.Since(startTime)).
		Msg("OCR processing completed")

	if err := outputResults(output, outputPath, jsonOutput, includeRaw, log); err != nil {
		return err
	}

	if sheetURL != "" {
		exporter, err := gsheets.NewSheetsService(ctx, sheetURL, worksheet, cfg.CredentialProvider(sheets.SpreadsheetsScope))
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := exportResults(ctx, exporter, results); err != nil {
			return err
		}
		log.Info().Str("worksheet", worksheet).Str("url", sheetURL).Msg("Results written to Google Sheet")
	}

	if batchErr != nil {
		return handleOCRError(batchErr, log)
	}
	return nil
}

// resolveConfig returns the loaded configuration with flag overrides applied
func resolveConfig(policy, transport string) (*config.Config, error) {
	cfg := appConfig
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Copy so flag overrides do not leak into the shared config
	resolved := *cfg
	if policy != "" {
		resolved.VisionBatchPolicy = strings.ToLower(policy)
	}
	if transport != "" {
		resolved.VisionTransport = strings.ToLower(transport)
	}

	switch ocr.BatchPolicy(resolved.VisionBatchPolicy) {
	case ocr.PolicyStop, ocr.PolicyContinue:
	default:
		return nil, fmt.Errorf("invalid policy: %s (must be 'stop' or 'continue')", resolved.VisionBatchPolicy)
	}
	switch ocr.Transport(resolved.VisionTransport) {
	case ocr.TransportREST, ocr.TransportGRPC:
	default:
		return nil, fmt.Errorf("invalid transport: %s (must be 'rest' or 'grpc')", resolved.VisionTransport)
	}

	return &resolved, nil
}

// collectImagePaths combines explicit paths with the images found under dir
func collectImagePaths(args []string, dir string) ([]string, error) {
	paths := append([]string(nil), args...)
	if dir == "" {
		return paths, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("folder not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	found, err := findImageFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find image files: %w", err)
	}
	return append(paths, found...), nil
}

// findImageFiles finds all image files in the specified folder, in lexical order
func findImageFiles(folderPath string) ([]string, error) {
	var imageFiles []string

	err := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			imageFiles = append(imageFiles, path)
		}
		return nil
	})

	return imageFiles, err
}

// validateImagePaths warns about images that will not produce text.
// They are still sent so every path keeps its position in the batch.
func validateImagePaths(paths []string, log zerolog.Logger) {
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("file", path).Msg("Image not accessible, it will be sent empty")
		case !info.Mode().IsRegular():
			log.Warn().Str("file", path).Msg("Path is not a regular file")
		case info.Size() == 0:
			log.Warn().Str("file", path).Msg("Image file is empty")
		case info.Size() > ocr.MaxFileSizeBytes:
			log.Warn().
				Str("file", path).
				Int64("size", info.Size()).
				Int64("max_size", ocr.MaxFileSizeBytes).
				Msg("Image exceeds maximum size limit, it will be sent empty")
		case !imageExtensions[strings.ToLower(filepath.Ext(path))]:
			log.Warn().Str("file", path).Msg("File does not have a known image extension")
		}
	}
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling OCR processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// createOCRService creates and configures the OCR service
func createOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) ocr.OCRService {
	if !cfg.HasExplicitCredentials() {
		log.Warn().Msg("GOOGLE_CREDENTIALS and GOOGLE_APPLICATION_CREDENTIALS not set, using Application Default Credentials")
	}

	ocrCfg := cfg.GetOCRConfig()
	ocrCfg.UserAgent = "visionbatch/" + version

	return ocr.NewGoogleVisionOCRService(ctx, ocrCfg, cfg.CredentialProvider(), logger.WithComponent("vision"))
}

// annotate uses the single-image call for one path and the batch call otherwise
func annotate(ctx context.Context, ocrService ocr.OCRService, paths []string) ([]*models.AnnotationResult, error) {
	if len(paths) == 1 {
		result, err := ocrService.AnnotateFile(ctx, paths[0])
		if err != nil {
			return nil, err
		}
		return []*models.AnnotationResult{result}, nil
	}
	return ocrService.AnnotateFiles(ctx, paths)
}

func exportResults(ctx context.Context, exporter services.ResultExporter, results []*models.AnnotationResult) error {
	if err := exporter.Export(ctx, results); err != nil {
		return fmt.Errorf("failed to write to Google Sheet: %w", err)
	}
	return nil
}

// buildBatchOutput converts results into the output structure
// submitted counts every image sent, including ones a stopped batch never reached
func buildBatchOutput(results []*models.AnnotationResult, submitted int, includeRaw bool, startTime time.Time) BatchOutput {
	output := BatchOutput{
		Results:            make([]OCROutput, 0, len(results)),
		Images:             submitted,
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(startTime).String(),
	}

	for _, result := range results {
		item := OCROutput{
			FileName:    filepath.Base(result.Source),
			Path:        result.Source,
			Status:      result.Status(),
			Text:        result.FullText,
			EntityCount: result.EntityCount,
		}
		if includeRaw {
			item.RawJSON = result.RawJSON
		}
		if result.Err != nil {
			item.Error = result.Err.Error()
			output.Failed++
		} else {
			output.Succeeded++
		}
		output.Results = append(output.Results, item)
	}

	return output
}

// formatText renders results as plain text, with a header per image when there are several
func formatText(output BatchOutput, includeRaw bool) string {
	var b strings.Builder
	multiple := len(output.Results) > 1

	for i, item := range output.Results {
		if multiple {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("=== %s ===\n", item.FileName))
		}
		if item.Error != "" {
			b.WriteString(fmt.Sprintf("[%s] %s\n", item.Status, item.Error))
			continue
		}
		b.WriteString(item.Text)
		if !strings.HasSuffix(item.Text, "\n") {
			b.WriteString("\n")
		}
		if includeRaw && item.RawJSON != "" {
			b.WriteString("\n--- Annotations ---\n")
			b.WriteString(item.RawJSON)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// outputResults formats and outputs the OCR results
func outputResults(output BatchOutput, outputPath string, jsonOutput, includeRaw bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = append(data, '\n')
	} else {
		outputData = []byte(formatText(output, includeRaw))
	}

	if outputPath == "" {
		if _, err := os.Stdout.Write(outputData); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(outputData)).
		Msg("OCR results written to file")

	return nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or sending fewer images")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrNoImages):
		return fmt.Errorf("no images given: pass image files or --dir")
	case errors.Is(err, ocr.ErrCredentialDiscovery):
		return fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
			"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
			"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n" +
			"3. Use Application Default Credentials (if gcloud is configured):\n" +
			"   gcloud auth application-default login\n\n" +
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrClientConstruction):
		return fmt.Errorf("failed to create the Vision API client: %w", err)
	case errors.Is(err, ocr.ErrImageRead):
		return fmt.Errorf("an image could not be read, remaining images were skipped. Use --policy continue to process them anyway: %w", err)
	case errors.Is(err, ocr.ErrAnnotationMissing):
		return fmt.Errorf("an image returned no text, remaining images were skipped. Use --policy continue to process them anyway: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "invalid_rapt") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials and ensure the "+
			"service account has the 'Cloud Vision API User' role.\n\nOriginal error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "PermissionDenied") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. Please ensure your Google Cloud service account has the 'Cloud Vision API User' role")
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "ResourceExhausted") ||
		strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, ocr.ErrServiceCall):
		return fmt.Errorf("OCR request failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
