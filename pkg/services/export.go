package services

import (
	"context"

	"visionbatch/pkg/models"
)

// ResultExporter defines the interface for destinations that store OCR results
type ResultExporter interface {
	// Export writes the given results, in order, to the destination
	Export(ctx context.Context, results []*models.AnnotationResult) error
}
