// Package window slides a fixed-size page window across the document and
// ranks every position by aggregate candidate quality. The scan is
// exhaustive: every offset is scored, which keeps the result auditable and
// deterministic.
package window

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/metrics"
	"github.com/local/packext/internal/scenario"
	"github.com/local/packext/internal/segment"
	"github.com/local/packext/internal/textheur"
)

// Summary is the compact form of a window used in reports and error
// payloads. StartPage/EndPage are 1-indexed and inclusive.
type Summary struct {
	StartPage           int     `json:"start_page"`
	EndPage             int     `json:"end_page"`
	CandidateCount      int     `json:"candidate_count"`
	QualifiedCandidates int     `json:"qualified_candidates"`
	TotalTokenHits      int     `json:"total_token_hits"`
	AnchorHits          int     `json:"anchor_hits"`
	AverageScore        float64 `json:"average_score"`
}

// Window is one scored page range with its scored candidates. Ephemeral;
// lives only during search.
type Window struct {
	Summary
	Candidates []scenario.ScoredCandidate
}

// Qualified reports whether a scored candidate counts toward a window's
// qualified total: enough scenario token hits, or at least one hit backed by
// a strong token.
func Qualified(b scenario.ScoreBreakdown, minHits int) bool {
	if b.ScenarioTokenHits >= minHits {
		return true
	}
	return b.ScenarioTokenHits >= 1 && b.StrongTokenHits > 0
}

// Search scores every window position and returns the top keepTop windows,
// ranked. Candidates are matched to windows by their absolute page index.
//
// Ranking is strict lexicographic, descending: anchor hits (only when
// anchors were supplied), qualified-candidate count, total token hits,
// average score. Ties keep the earlier start page (stable sort over offset
// order).
func Search(pages []extract.PageText, cands []segment.Candidate, dict *scenario.Dictionary,
	language string, anchors []string, windowSize, minHits, keepTop int) []Window {

	if len(pages) == 0 {
		return nil
	}
	if windowSize <= 0 || windowSize > len(pages) {
		windowSize = len(pages)
	}
	if keepTop <= 0 {
		keepTop = 3
	}

	// candidate scores do not depend on the window; score once
	scored := make([]scenario.ScoredCandidate, len(cands))
	for i, c := range cands {
		scored[i] = scenario.ScoredCandidate{Candidate: c, Score: scenario.Score(c, dict, language, minHits)}
	}

	foldedAnchors := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if a = strings.TrimSpace(a); a != "" {
			foldedAnchors = append(foldedAnchors, textheur.Fold(a))
		}
	}

	var windows []Window
	for offset := 0; offset+windowSize <= len(pages); offset++ {
		startPage := pages[offset].PageNumber
		endPage := pages[offset+windowSize-1].PageNumber

		w := Window{Summary: Summary{StartPage: startPage, EndPage: endPage}}
		scoreSum := 0.0
		for _, sc := range scored {
			page := sc.PageIndex + 1
			if page < startPage || page > endPage {
				continue
			}
			w.Candidates = append(w.Candidates, sc)
			w.CandidateCount++
			w.TotalTokenHits += sc.Score.ScenarioTokenHits
			scoreSum += sc.Score.TotalScore
			if Qualified(sc.Score, minHits) {
				w.QualifiedCandidates++
			}
		}
		if w.CandidateCount > 0 {
			w.AverageScore = scoreSum / float64(w.CandidateCount)
		}

		if len(foldedAnchors) > 0 {
			var text strings.Builder
			for i := offset; i < offset+windowSize; i++ {
				text.WriteString(textheur.Fold(pages[i].Text))
				text.WriteByte('\n')
			}
			windowText := text.String()
			for _, a := range foldedAnchors {
				w.AnchorHits += strings.Count(windowText, a)
			}
		}

		windows = append(windows, w)
	}
	metrics.AddWindowsScanned(len(windows))

	hasAnchors := len(foldedAnchors) > 0
	sort.SliceStable(windows, func(i, j int) bool {
		return Less(windows[j].Summary, windows[i].Summary, hasAnchors)
	})

	if len(windows) > keepTop {
		windows = windows[:keepTop]
	}
	if len(windows) > 0 {
		best := windows[0].Summary
		log.Debug().Str("scenario", dict.Name).Int("start", best.StartPage).Int("end", best.EndPage).
			Int("qualified", best.QualifiedCandidates).Int("hits", best.TotalTokenHits).
			Msg("window search complete")
	}
	return windows
}

// Less reports whether a ranks strictly below b under the lexicographic
// ranking rule.
func Less(a, b Summary, useAnchors bool) bool {
	if useAnchors && a.AnchorHits != b.AnchorHits {
		return a.AnchorHits < b.AnchorHits
	}
	if a.QualifiedCandidates != b.QualifiedCandidates {
		return a.QualifiedCandidates < b.QualifiedCandidates
	}
	if a.TotalTokenHits != b.TotalTokenHits {
		return a.TotalTokenHits < b.TotalTokenHits
	}
	return a.AverageScore < b.AverageScore
}
