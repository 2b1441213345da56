package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/local/packext/internal/discover"
	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/filetype"
	"github.com/local/packext/internal/profile"
	"github.com/local/packext/internal/quality"
	"github.com/local/packext/internal/window"
)

// InsufficientEvidenceError means the best scenario/window combination did
// not yield enough qualified candidates. Fatal for this run, but the
// operator can retry with different parameters; the payload carries the
// discovery ranking and best-window summary to guide that retry.
type InsufficientEvidenceError struct {
	Scenario   string
	Qualified  int
	Required   int
	Ranking    []discover.Stats
	BestWindow *window.Summary
}

func (e *InsufficientEvidenceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "insufficient evidence: scenario %q yields %d qualified candidates (need %d)",
		e.Scenario, e.Qualified, e.Required)
	if e.BestWindow != nil {
		fmt.Fprintf(&b, "; best window pages %d-%d (hits=%d, qualified=%d)",
			e.BestWindow.StartPage, e.BestWindow.EndPage, e.BestWindow.TotalTokenHits, e.BestWindow.QualifiedCandidates)
	}
	if len(e.Ranking) > 0 {
		b.WriteString("; discovered scenarios:")
		for _, st := range e.Ranking {
			fmt.Fprintf(&b, " %s=%d", st.Scenario, st.TotalTokenHits)
		}
	}
	return b.String()
}

// Kind returns the stable machine-readable error kind.
func (e *InsufficientEvidenceError) Kind() string { return "insufficient_evidence" }

// kinder is implemented by every fatal pipeline error.
type kinder interface{ Kind() string }

// KindOf returns the stable machine-readable kind of a fatal pipeline
// error, or "" for errors outside the taxonomy. Calling tooling branches on
// these kinds, never on message text.
func KindOf(err error) string {
	var (
		scanned      *extract.ScannedDocumentError
		ocr          *extract.OCRNotImplementedError
		unsupported  *filetype.UnsupportedTypeError
		badProfile   *profile.Error
		insufficient *InsufficientEvidenceError
		gate         *quality.GateError
	)
	switch {
	case errors.As(err, &scanned):
		return scanned.Kind()
	case errors.As(err, &ocr):
		return ocr.Kind()
	case errors.As(err, &unsupported):
		return unsupported.Kind()
	case errors.As(err, &badProfile):
		return badProfile.Kind()
	case errors.As(err, &insufficient):
		return insufficient.Kind()
	case errors.As(err, &gate):
		return gate.Kind()
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// IsFatalInput reports errors that no retry can fix (taxonomy class a).
func IsFatalInput(err error) bool {
	switch KindOf(err) {
	case "scanned_document", "ocr_not_implemented", "unsupported_type", "invalid_profile":
		return true
	}
	return false
}
