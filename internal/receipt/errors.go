package receipt

import (
	"errors"
	"strings"
)

// Kind identifies which pipeline gate rejected a receipt. OCR failures are
// expected and common, so every kind carries guidance the guest can act on.
type Kind string

const (
	// KindNoOcrResult: the OCR collaborator returned nothing at all.
	KindNoOcrResult Kind = "no_ocr_result"
	// KindEmptyDetectedText: text annotations absent or blank.
	KindEmptyDetectedText Kind = "empty_detected_text"
	// KindUnknownBrand: no brand matched in the first lines.
	KindUnknownBrand Kind = "unknown_brand"
	// KindNoItemsFound: item extraction produced zero valid items.
	KindNoItemsFound Kind = "no_items_found"
	// KindMissingTotal: the total-amount pattern did not match.
	KindMissingTotal Kind = "missing_total"
	// KindProcessingFailed: any other unexpected failure in the pipeline.
	KindProcessingFailed Kind = "processing_failed"
)

// ProcessError is a pipeline failure with a user-facing message. Error()
// returns the guidance text, never a technical string.
type ProcessError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ProcessError) Error() string {
	return e.Message
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

var userMessages = map[Kind]string{
	KindNoOcrResult:       "We couldn't read your receipt. Please retake the photo with good lighting, avoid glare, keep the receipt flat and make sure it is fully visible.",
	KindEmptyDetectedText: "No text could be detected on your receipt. This might be due to blur, darkness or glare. Please retake the photo.",
	KindUnknownBrand:      "We couldn't identify the store on your receipt. Please make sure the store name at the top is visible, avoid glare and capture the whole receipt.",
	KindNoItemsFound:      "We couldn't find any items on your receipt. Please make sure the item list is visible and the receipt is not folded or damaged.",
	KindMissingTotal:      "We couldn't find the total amount on your receipt. Please make sure the bottom portion of the receipt is included and undamaged.",
	KindProcessingFailed:  "Something went wrong while reading your receipt. Please retake the photo with good lighting, keep the receipt flat and capture it fully.",
}

// newProcessError builds the error for a gate, keeping the cause for logs.
func newProcessError(kind Kind, cause error) *ProcessError {
	return &ProcessError{
		Kind:    kind,
		Message: userMessages[kind],
		Err:     cause,
	}
}

// looksUserFacing is the heuristic for messages already safe to show to a
// guest: our guidance texts all contain "Please" or "This might be".
func looksUserFacing(msg string) bool {
	return strings.Contains(msg, "Please") || strings.Contains(msg, "This might be")
}

// wrapProcessError guarantees the caller never sees a raw technical error.
// ProcessErrors and already user-facing messages pass through; anything else
// is rewritten into the generic retake-photo guidance.
func wrapProcessError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe
	}
	if looksUserFacing(err.Error()) {
		return err
	}
	return newProcessError(KindProcessingFailed, err)
}
