// Package extract reads source documents into per-page text and caches the
// result keyed by content hash and extraction version.
package extract

import (
	"fmt"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/filetype"
)

// Version is the extraction version constant. Bump it whenever extraction
// behavior changes; cache entries written under another version are treated
// as absent.
const Version = "1.3.0"

const (
	// MinTotalChars is the minimum extractable characters for a document to
	// count as text-based (inclusive).
	MinTotalChars = 2000
	// MinAvgCharsPerPage is the minimum average characters per page
	// (inclusive).
	MinAvgCharsPerPage = 250.0
)

// MethodText marks pages obtained via text extraction; MethodOCR is reserved
// for a future OCR path.
const (
	MethodText = "text"
	MethodOCR  = "ocr"
)

// PageText is the text of one physical page. Immutable once created.
type PageText struct {
	PageNumber int    `json:"page_number"` // 1-based
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
}

// Result is the output of one extraction run.
type Result struct {
	Pages           []PageText
	Method          string
	Warnings        []string
	PageCount       int
	TotalChars      int
	AvgCharsPerPage float64
}

// Extractor turns a local document into per-page text. It is a pure read;
// failure is fatal to the caller.
type Extractor struct {
	// EnableOCR requests OCR for image-only documents. OCR is not
	// implemented; enabling it yields OCRNotImplementedError instead of the
	// scanned-document error.
	EnableOCR bool
}

// Extract reads the document at path. PDF sources are read page by page via
// MuPDF; plain-text sources are split into pages on form-feed markers, or
// kept as one synthetic page when no markers exist.
func (e *Extractor) Extract(path string) (*Result, error) {
	info, err := filetype.Detect(path)
	if err != nil {
		return nil, err
	}

	var pages []string
	var warnings []string
	switch {
	case info.IsPDF:
		pages, warnings, err = extractPDF(path)
	case info.IsText:
		pages, err = splitTextPages(path)
	}
	if err != nil {
		return nil, err
	}

	res, err := assemble(pages, e.EnableOCR)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)
	log.Debug().Str("path", path).Int("pages", res.PageCount).
		Int("chars", res.TotalChars).Msg("extracted document")
	return res, nil
}

// assemble builds a Result from raw page texts and applies the
// scanned-document heuristic.
func assemble(pageTexts []string, ocr bool) (*Result, error) {
	res := &Result{Method: MethodText}
	total := 0
	for i, t := range pageTexts {
		n := len([]rune(t))
		total += n
		res.Pages = append(res.Pages, PageText{PageNumber: i + 1, Text: t, CharCount: n})
	}
	res.PageCount = len(res.Pages)
	res.TotalChars = total
	if res.PageCount > 0 {
		res.AvgCharsPerPage = float64(total) / float64(res.PageCount)
	}

	if total == 0 {
		if ocr {
			return nil, &OCRNotImplementedError{}
		}
		return nil, &ScannedDocumentError{Reason: "no extractable text"}
	}
	if total < MinTotalChars || res.AvgCharsPerPage < MinAvgCharsPerPage {
		if ocr {
			return nil, &OCRNotImplementedError{}
		}
		return nil, &ScannedDocumentError{
			Reason: fmt.Sprintf("looks scanned: %d chars total, %.1f avg/page", total, res.AvgCharsPerPage),
		}
	}
	return res, nil
}

func extractPDF(path string) ([]string, []string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var warnings []string
	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("page text extraction failed")
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
			text = ""
		}
		pages = append(pages, text)
	}

	// pre-flight cross-check against pdfcpu; a mismatch usually means a
	// damaged xref table
	if count, err := api.PageCountFile(path); err != nil {
		warnings = append(warnings, fmt.Sprintf("pdfcpu page count failed: %v", err))
	} else if count != n {
		log.Warn().Int("mupdf", n).Int("pdfcpu", count).Msg("page count mismatch")
		warnings = append(warnings, fmt.Sprintf("page count mismatch: mupdf=%d pdfcpu=%d", n, count))
	}

	return pages, warnings, nil
}

func splitTextPages(path string) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.Contains(text, "\f") {
		return strings.Split(text, "\f"), nil
	}
	// no page-break markers: one synthetic page
	return []string{text}, nil
}
