package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"github.com/rs/zerolog"

	"visionbatch/internal/credentials"
	"visionbatch/internal/ocr"
)

// Example demonstrates basic usage of the OCR service.
func Example() {
	// Load .env file (using godotenv in main)
	// This should be done in your main() function:
	//
	// if err := godotenv.Load(); err != nil {
	//     log.Printf("Warning: Could not load .env file: %v", err)
	// }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Credentials come from GOOGLE_CREDENTIALS, GOOGLE_APPLICATION_CREDENTIALS or ADC
	provider := credentials.FromEnvironment(
		os.Getenv("GOOGLE_CREDENTIALS"),
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		vision.DefaultAuthScopes()...,
	)

	ocrService := ocr.NewGoogleVisionOCRService(ctx, ocr.DefaultConfig(), provider, zerolog.New(os.Stderr))
	defer ocrService.Close()

	result, err := ocrService.AnnotateFile(ctx, "receipt.jpg")
	if err != nil {
		log.Fatalf("Failed to annotate image: %v", err)
	}

	fmt.Printf("Extracted text (%d characters):\n%s\n", len(result.FullText), result.FullText)
}

// ExampleGoogleVisionOCRService_AnnotateFiles sends several images in one request.
func ExampleGoogleVisionOCRService_AnnotateFiles() {
	ctx := context.Background()

	cfg := ocr.DefaultConfig()
	cfg.Policy = ocr.PolicyContinue // keep going past images without text

	ocrService := ocr.NewGoogleVisionOCRService(ctx, cfg, credentials.Default{Scopes: vision.DefaultAuthScopes()}, zerolog.Nop())
	defer ocrService.Close()

	results, err := ocrService.AnnotateFiles(ctx, []string{"page1.png", "page2.png", "page3.png"})
	if err != nil {
		log.Fatalf("Batch failed: %v", err)
	}

	for _, result := range results {
		switch {
		case errors.Is(result.Err, ocr.ErrImageRead):
			fmt.Printf("%s: could not be read\n", result.Source)
		case errors.Is(result.Err, ocr.ErrAnnotationMissing):
			fmt.Printf("%s: no text (%v)\n", result.Source, result.Err)
		default:
			fmt.Printf("%s: %d entities\n%s\n", result.Source, result.EntityCount, result.FullText)
		}
	}
}

// ExampleNewGoogleVisionOCRServiceWithClient shows injecting a prebuilt Vision client.
func ExampleNewGoogleVisionOCRServiceWithClient() {
	ctx := context.Background()

	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		log.Fatalf("Failed to create Vision client: %v", err)
	}

	ocrService := ocr.NewGoogleVisionOCRServiceWithClient(client, ocr.DefaultConfig(), zerolog.Nop())
	defer ocrService.Close()

	result, err := ocrService.AnnotateFile(ctx, "sign.png")
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrServiceCall):
			log.Printf("Vision API unavailable: %v", err)
		case errors.Is(err, ocr.ErrAnnotationMissing):
			log.Printf("No text detected: %v", err)
		default:
			log.Printf("OCR failed: %v", err)
		}
		return
	}

	fmt.Println(result.RawJSON)
}
