package ocr

import (
	"errors"
	"fmt"
)

// Error kinds reported by the OCR service. Match them with errors.Is.
var (
	// ErrNoImages is returned when a batch is submitted without any image paths.
	ErrNoImages = errors.New("no images to annotate")

	// ErrCredentialDiscovery is returned when no Google Cloud credentials could be obtained.
	// It surfaces wrapped in ErrClientConstruction on the first request.
	ErrCredentialDiscovery = errors.New("could not obtain Google Cloud credentials: check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrClientConstruction is returned when the Vision API client cannot be built.
	ErrClientConstruction = errors.New("failed to create Vision API client")

	// ErrImageRead is attached to a result whose image file could not be read.
	// The image is still sent, with empty content.
	ErrImageRead = errors.New("failed to read image")

	// ErrServiceCall is returned when the batched Vision API call fails.
	ErrServiceCall = errors.New("Vision API call failed")

	// ErrAnnotationMissing is returned when a response carries no text annotations.
	ErrAnnotationMissing = errors.New("no text annotations in response")
)

// unknownAnnotationError is the message used when the service reports no reason.
const unknownAnnotationError = "unknown error getting image annotations"

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "AnnotateFiles", "readImage").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// Path is the image the failure relates to, if any.
	Path string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	op := e.Op
	if e.Path != "" {
		op = fmt.Sprintf("%s [%s]", e.Op, e.Path)
	}
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// kind joins a sentinel with its cause so both match errors.Is.
func kind(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
