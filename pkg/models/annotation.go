package models

import "strings"

// AnnotationResult holds the text detected in one image.
type AnnotationResult struct {
	Source      string `json:"source"`       // Path of the image that was sent
	FullText    string `json:"full_text"`    // Description of the first annotation (the whole text block)
	RawJSON     string `json:"raw_json"`     // Pretty-printed JSON of every annotation entity, concatenated
	EntityCount int    `json:"entity_count"` // Number of annotation entities returned

	// Err is set when this image could not be read or annotated.
	Err error `json:"-"`
}

// AppendRawJSON adds one rendered annotation entity to RawJSON.
func (r *AnnotationResult) AppendRawJSON(entity string) {
	if entity == "" {
		return
	}
	var b strings.Builder
	b.WriteString(r.RawJSON)
	if r.RawJSON != "" && !strings.HasSuffix(r.RawJSON, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(entity)
	r.RawJSON = b.String()
	r.EntityCount++
}

// HasText reports whether any text was detected.
func (r *AnnotationResult) HasText() bool {
	return r != nil && r.Err == nil && r.FullText != ""
}

// Status classifies the result as "success", "empty" or "error".
func (r *AnnotationResult) Status() string {
	switch {
	case r.Err != nil:
		return "error"
	case !r.HasText():
		return "empty"
	default:
		return "success"
	}
}
