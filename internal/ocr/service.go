// Package ocr submits local images to the Google Cloud Vision API for text
// detection and maps the responses into annotation results.
//
// All images of a call travel in ONE BatchAnnotateImages request, each asking
// for TEXT_DETECTION with at most one result. For every response the first
// annotation's description becomes the full text, and every annotation
// entity is kept as pretty-printed JSON.
//
// Required Environment Variables (when credentials come from the environment):
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - Neither: Application Default Credentials are used
//
// Cloud Vision API Limitations:
//   - Maximum image size: 20MB (inline content)
//   - Maximum 16 images per synchronous batch request
//   - Supported formats: JPEG, PNG, GIF, BMP, WEBP, RAW, ICO, PDF, TIFF
//
// Failure handling:
//   - Every failure is logged where it happens and returned to the caller.
//   - An unreadable file is sent with empty content; its result carries ErrImageRead.
//   - A response without annotations stops the batch (PolicyStop) or is
//     recorded on that image's result (PolicyContinue).
package ocr

import (
	"context"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"

	"visionbatch/pkg/models"
)

const (
	// DefaultTimeout is used for both the connect and the read timeout.
	DefaultTimeout = 3 * time.Minute

	// MaxResults caps the annotations requested per image.
	MaxResults = 1

	// MaxFileSizeBytes is the largest image the Vision API accepts inline (20MB).
	MaxFileSizeBytes = 20 * 1024 * 1024

	// DefaultUserAgent identifies this client to the Vision API.
	DefaultUserAgent = "visionbatch/1.0.0"
)

// OCRService defines the interface for batch text detection on local images.
type OCRService interface {
	// AnnotateFiles sends every image in one batch and returns one result per
	// successfully mapped response, in input order.
	AnnotateFiles(ctx context.Context, paths []string) ([]*models.AnnotationResult, error)

	// AnnotateFile is AnnotateFiles for a single image. It never returns a nil result.
	AnnotateFile(ctx context.Context, path string) (*models.AnnotationResult, error)

	// Close releases the underlying Vision client.
	Close() error
}

// ImageAnnotator is the subset of the Vision ImageAnnotatorClient used here.
// *vision.ImageAnnotatorClient satisfies it; tests provide fakes.
type ImageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// Transport selects the wire protocol for the Vision client.
type Transport string

const (
	TransportREST Transport = "rest"
	TransportGRPC Transport = "grpc"
)

// BatchPolicy decides what happens when one response in a batch has no annotations.
type BatchPolicy string

const (
	// PolicyStop stops at the first response without annotations and returns
	// the results gathered so far along with the error.
	PolicyStop BatchPolicy = "stop"

	// PolicyContinue records the error on that image's result and keeps going.
	PolicyContinue BatchPolicy = "continue"
)

// Config holds configuration for the Vision OCR service.
type Config struct {
	// Transport is the wire protocol. Default: REST.
	Transport Transport

	// Endpoint overrides the Vision API endpoint when set.
	Endpoint string

	// ConnectTimeout bounds connection setup. Default: 3 minutes.
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for the response. Default: 3 minutes.
	ReadTimeout time.Duration

	// Policy is the batch failure policy. Default: PolicyStop.
	Policy BatchPolicy

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Transport:      TransportREST,
		ConnectTimeout: DefaultTimeout,
		ReadTimeout:    DefaultTimeout,
		Policy:         PolicyStop,
		UserAgent:      DefaultUserAgent,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Transport == "" {
		c.Transport = d.Transport
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.Policy == "" {
		c.Policy = d.Policy
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	return c
}
