package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssembleAcceptsBoundaryValues(t *testing.T) {
	// 8 pages of exactly 250 chars: 2000 total, 250 avg, both inclusive minima
	pages := make([]string, 8)
	for i := range pages {
		pages[i] = strings.Repeat("a", 250)
	}
	res, err := assemble(pages, false)
	if err != nil {
		t.Fatalf("boundary document rejected: %v", err)
	}
	if res.TotalChars != 2000 || res.AvgCharsPerPage != 250 {
		t.Fatalf("totals wrong: %d chars, %f avg", res.TotalChars, res.AvgCharsPerPage)
	}
	if res.PageCount != 8 || res.Pages[0].PageNumber != 1 {
		t.Fatalf("page bookkeeping wrong: count=%d first=%d", res.PageCount, res.Pages[0].PageNumber)
	}
}

func TestAssembleRejectsBelowTotalMinimum(t *testing.T) {
	pages := []string{strings.Repeat("a", 1999)}
	_, err := assemble(pages, false)
	var scanned *ScannedDocumentError
	if !errors.As(err, &scanned) {
		t.Fatalf("wrong error: %v", err)
	}
}

func TestAssembleRejectsLowAverage(t *testing.T) {
	// 4000 chars total but spread over 20 pages: avg 200 < 250
	pages := make([]string, 20)
	for i := range pages {
		pages[i] = strings.Repeat("a", 200)
	}
	if _, err := assemble(pages, false); err == nil {
		t.Fatal("low-average document must be rejected")
	}
}

func TestAssembleEmptyDocument(t *testing.T) {
	_, err := assemble([]string{"", ""}, false)
	var scanned *ScannedDocumentError
	if !errors.As(err, &scanned) {
		t.Fatalf("expected scanned error, got %v", err)
	}
	if scanned.Reason != "no extractable text" {
		t.Fatalf("reason = %q", scanned.Reason)
	}
}

func TestAssembleOCRRequested(t *testing.T) {
	_, err := assemble([]string{""}, true)
	var ocr *OCRNotImplementedError
	if !errors.As(err, &ocr) {
		t.Fatalf("expected OCR-not-implemented error, got %v", err)
	}
	if ocr.Kind() != "ocr_not_implemented" {
		t.Fatalf("kind = %q", ocr.Kind())
	}
}

func TestExtractPlainTextFormFeedPages(t *testing.T) {
	page := strings.Repeat("Ein ganz normaler Satz steht hier im Text. ", 16)
	content := page + "\f" + page + "\f" + page
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &Extractor{}
	res, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.PageCount != 3 {
		t.Fatalf("pages = %d, want 3", res.PageCount)
	}
	if res.Method != MethodText {
		t.Fatalf("method = %q", res.Method)
	}
	for i, p := range res.Pages {
		if p.PageNumber != i+1 {
			t.Fatalf("page %d numbered %d", i, p.PageNumber)
		}
	}
}

func TestCacheKeyShape(t *testing.T) {
	key := CacheKey([]byte("document bytes"), "1.3.0")
	parts := strings.Split(key, "-")
	if len(parts) != 2 || len(parts[0]) != 16 || len(parts[1]) != 8 {
		t.Fatalf("malformed key %q", key)
	}
	if key != CacheKey([]byte("document bytes"), "1.3.0") {
		t.Fatal("key not deterministic")
	}
	if key == CacheKey([]byte("document bytes"), "1.4.0") {
		t.Fatal("version change must change the key")
	}
	if key == CacheKey([]byte("other bytes"), "1.3.0") {
		t.Fatal("content change must change the key")
	}
}

func TestContentHash(t *testing.T) {
	h := ContentHash([]byte("abc"))
	if len(h) != 64 {
		t.Fatalf("hash length = %d", len(h))
	}
	if h != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected sha256: %s", h)
	}
}
