package extract

import "fmt"

// ScannedDocumentError marks a document with no usable text layer. Fatal;
// re-running cannot help without OCR.
type ScannedDocumentError struct {
	Reason string
}

func (e *ScannedDocumentError) Error() string {
	return fmt.Sprintf("scanned or image-only document: %s", e.Reason)
}

// Kind returns the stable machine-readable error kind.
func (e *ScannedDocumentError) Kind() string { return "scanned_document" }

// OCRNotImplementedError is returned when OCR was requested for an
// image-only document. OCR is a declared capability gap, not a silent
// degradation.
type OCRNotImplementedError struct{}

func (e *OCRNotImplementedError) Error() string {
	return "ocr requested but not implemented"
}

// Kind returns the stable machine-readable error kind.
func (e *OCRNotImplementedError) Kind() string { return "ocr_not_implemented" }
