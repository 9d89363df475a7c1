package ocr

import (
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/protobuf/encoding/protojson"

	"visionbatch/pkg/models"
)

var prettyJSON = protojson.MarshalOptions{
	Multiline: true,
	Indent:    "  ",
}

// mapResponse turns one image response into a result. The first text
// annotation holds the whole detected text; the rest are individual words.
func mapResponse(source string, resp *visionpb.AnnotateImageResponse) (*models.AnnotationResult, error) {
	const op = "mapResponse"

	annotations := resp.GetTextAnnotations()
	if len(annotations) == 0 {
		details := unknownAnnotationError
		if msg := resp.GetError().GetMessage(); msg != "" {
			details = msg
		}
		return nil, &OCRError{Op: op, Err: ErrAnnotationMissing, Details: details, Path: source}
	}

	result := &models.AnnotationResult{
		Source:   source,
		FullText: annotations[0].GetDescription(),
	}

	for _, entity := range annotations {
		rendered, err := prettyJSON.Marshal(entity)
		if err != nil {
			return nil, &OCRError{Op: op, Err: err, Details: "failed to render annotation", Path: source}
		}
		result.AppendRawJSON(string(rendered))
	}

	return result, nil
}
