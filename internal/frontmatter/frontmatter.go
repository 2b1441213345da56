// Package frontmatter flags leading non-content pages (table of contents,
// copyright, preface) so the pipeline can skip them before segmentation.
package frontmatter

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/textheur"
)

// DefaultMaxScan is how many leading pages are inspected.
const DefaultMaxScan = 40

var keywords = []string{
	// German
	"inhaltsverzeichnis", "inhalt", "impressum", "vorwort", "einleitung",
	"alle rechte vorbehalten", "verlag", "auflage", "kapitel",
	// English
	"table of contents", "contents", "copyright", "preface", "foreword",
	"all rights reserved", "chapter", "isbn",
}

// PageEvidence records why a page was flagged as front matter.
type PageEvidence struct {
	PageIndex int      `json:"page_index"` // 0-based
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons"`
}

// Result is the detector output. SkipPages is the number of leading pages to
// drop; Flagged carries the audit trail.
type Result struct {
	SkipPages        int
	Flagged          []PageEvidence
	FirstContentPage int // 0-based index of the first of two consecutive content pages, -1 if none
}

// looksLikeContent is the "real prose starts here" signal: enough text, few
// heading lines, dense sentence punctuation.
func looksLikeContent(p extract.PageText) bool {
	return p.CharCount > 200 &&
		textheur.HeadingLineRatio(p.Text) < 0.4 &&
		textheur.PunctuationDensity(p.Text) > 5
}

// Detect scans up to maxScan leading pages and accumulates a front-matter
// score per page: matched keyword +2, heading-line ratio above 0.6 +2,
// punctuation density below 3 per 1000 chars +1. Pages scoring at least 2
// are flagged.
func Detect(pages []extract.PageText, maxScan int) Result {
	if maxScan <= 0 {
		maxScan = DefaultMaxScan
	}
	scan := maxScan
	if scan > len(pages) {
		scan = len(pages)
	}

	res := Result{FirstContentPage: -1}
	lastFlagged := -1
	for i := 0; i < scan; i++ {
		p := pages[i]
		folded := textheur.Fold(p.Text)

		score := 0
		var reasons []string
		for _, kw := range keywords {
			if strings.Contains(folded, kw) {
				score += 2
				reasons = append(reasons, fmt.Sprintf("keyword %q", kw))
				break
			}
		}
		if ratio := textheur.HeadingLineRatio(p.Text); ratio > 0.6 {
			score += 2
			reasons = append(reasons, fmt.Sprintf("heading-line ratio %.2f", ratio))
		}
		if density := textheur.PunctuationDensity(p.Text); density < 3 {
			score++
			reasons = append(reasons, fmt.Sprintf("punctuation density %.1f/1000", density))
		}

		if score >= 2 {
			res.Flagged = append(res.Flagged, PageEvidence{PageIndex: i, Score: score, Reasons: reasons})
			lastFlagged = i
		}

		if res.FirstContentPage < 0 && i+1 < len(pages) &&
			looksLikeContent(p) && looksLikeContent(pages[i+1]) {
			res.FirstContentPage = i
		}
	}

	switch {
	case res.FirstContentPage >= 0:
		res.SkipPages = res.FirstContentPage
	case lastFlagged >= 0:
		res.SkipPages = lastFlagged + 1
	default:
		res.SkipPages = 0
	}
	if res.SkipPages > maxScan {
		res.SkipPages = maxScan
	}

	log.Debug().Int("skip", res.SkipPages).Int("flagged", len(res.Flagged)).Msg("front matter scan complete")
	return res
}
