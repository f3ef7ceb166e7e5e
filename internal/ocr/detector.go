package ocr

import "context"

// Annotation is one detected block of text.
type Annotation struct {
	Description string `json:"description"`
}

// Result is the raw outcome of a text-detection call. The first annotation
// carries the full transcription; any further entries are ignored by the
// pipeline.
type Result struct {
	TextAnnotations []Annotation `json:"text_annotations"`
}

// FullText returns the full transcription, or "" when nothing was detected.
func (r *Result) FullText() string {
	if r == nil || len(r.TextAnnotations) == 0 {
		return ""
	}
	return r.TextAnnotations[0].Description
}

// TextDetector converts a receipt image into a line-ordered text blob.
type TextDetector interface {
	// DetectText runs text detection on an image. A nil result means the
	// backend produced nothing at all.
	DetectText(ctx context.Context, imageData []byte, contentType string) (*Result, error)
	// Close releases backend resources.
	Close() error
}

// transcribePrompt is the shared prompt used by the vision backends. The
// pipeline needs the printed text verbatim, line by line, not a summary.
const transcribePrompt = `You are transcribing a printed till receipt from a photo.

Read every line of text in the image from top to bottom and return it exactly as printed, one receipt line per output line. Preserve the original order, casing, numbers and punctuation. Do not merge lines, do not add labels, explanations or markdown, and do not skip headers, separators or footer lines. If a line is unreadable, skip it rather than guessing.

Return only the transcribed text.`
