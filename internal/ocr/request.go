package ocr

import (
	"os"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// readImage loads the whole image file. The Vision client base64-encodes
// the content on the wire. Oversized images are sent as is and left for the
// service to reject.
func readImage(path string) ([]byte, error) {
	const op = "readImage"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OCRError{Op: op, Err: kind(ErrImageRead, err), Path: path}
	}
	return data, nil
}

// newTextDetectionRequest asks for TEXT_DETECTION on one image, capped at MaxResults.
func newTextDetectionRequest(content []byte) *visionpb.AnnotateImageRequest {
	return &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{
			Content: content,
		},
		Features: []*visionpb.Feature{
			{
				Type:       visionpb.Feature_TEXT_DETECTION,
				MaxResults: MaxResults,
			},
		},
	}
}

// newBatchRequest builds one sub-request per image, in order.
func newBatchRequest(contents [][]byte) *visionpb.BatchAnnotateImagesRequest {
	requests := make([]*visionpb.AnnotateImageRequest, 0, len(contents))
	for _, content := range contents {
		requests = append(requests, newTextDetectionRequest(content))
	}
	return &visionpb.BatchAnnotateImagesRequest{Requests: requests}
}
