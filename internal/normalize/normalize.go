// Package normalize cleans extracted page text: recurring headers/footers,
// hyphenated line breaks, page-number lines and whitespace noise. Every
// change is recorded in an ordered action log for the run report.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/extract"
)

const (
	// headerMaxLen is the longest line still considered a header/footer
	// candidate.
	headerMaxLen = 100
	// headerMinRecurrence is the fraction of pages a line must recur on.
	headerMinRecurrence = 0.6
	// headerMinPages is the absolute recurrence floor.
	headerMinPages = 2
)

var (
	hyphenBreakRe = regexp.MustCompile(`(\pL)-[ \t]*\n[ \t]*(\pL)`)
	pageNumLineRe = regexp.MustCompile(`(?mi)^[ \t]*(?:\d+|(?:page|seite)[ \t]+\d+)[ \t]*$\n?`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
	newlineRunRe  = regexp.MustCompile(`\n{3,}`)
)

// Result is the normalized document plus the ordered log of actions taken.
type Result struct {
	Pages   []extract.PageText
	Actions []string
}

// Document normalizes all pages with cross-page header/footer detection:
// short lines that recur identically (case-insensitive) on at least 60% of
// pages (minimum 2) are removed everywhere, then each page goes through the
// single-page steps.
func Document(pages []extract.PageText) Result {
	res := Result{Pages: make([]extract.PageText, 0, len(pages))}

	recurring := recurringLines(pages)
	for _, line := range recurring.ordered {
		res.Actions = append(res.Actions,
			fmt.Sprintf("removed recurring header/footer %q (%d pages)", line, recurring.counts[line]))
	}

	for _, p := range pages {
		text := p.Text
		if len(recurring.ordered) > 0 {
			text = stripRecurring(text, recurring.set)
		}
		cleaned, actions := normalizeText(text)
		res.Actions = append(res.Actions, prefixPage(p.PageNumber, actions)...)
		res.Pages = append(res.Pages, extract.PageText{
			PageNumber: p.PageNumber,
			Text:       cleaned,
			CharCount:  len([]rune(cleaned)),
		})
	}

	log.Debug().Int("pages", len(pages)).Int("actions", len(res.Actions)).Msg("normalized document")
	return res
}

// Page normalizes one page without cross-page header/footer detection.
func Page(p extract.PageText) (extract.PageText, []string) {
	cleaned, actions := normalizeText(p.Text)
	return extract.PageText{
		PageNumber: p.PageNumber,
		Text:       cleaned,
		CharCount:  len([]rune(cleaned)),
	}, prefixPage(p.PageNumber, actions)
}

func prefixPage(pageNum int, actions []string) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, fmt.Sprintf("page %d: %s", pageNum, a))
	}
	return out
}

// normalizeText applies the mode-independent steps in a fixed order:
// de-hyphenation, page-number lines, whitespace collapsing, trim.
func normalizeText(text string) (string, []string) {
	var actions []string

	if n := len(hyphenBreakRe.FindAllStringIndex(text, -1)); n > 0 {
		text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
		actions = append(actions, fmt.Sprintf("de-hyphenated %d line break(s)", n))
	}
	if n := len(pageNumLineRe.FindAllStringIndex(text, -1)); n > 0 {
		text = pageNumLineRe.ReplaceAllString(text, "")
		actions = append(actions, fmt.Sprintf("stripped %d page-number line(s)", n))
	}
	if collapsed := spaceRunRe.ReplaceAllString(text, " "); collapsed != text {
		text = collapsed
		actions = append(actions, "collapsed whitespace runs")
	}
	if newlineRunRe.MatchString(text) {
		text = newlineRunRe.ReplaceAllString(text, "\n\n")
		actions = append(actions, "collapsed blank-line runs")
	}
	text = strings.TrimSpace(text)
	return text, actions
}

type recurrence struct {
	set     map[string]bool // folded line -> remove
	counts  map[string]int
	ordered []string
}

// recurringLines finds short lines that repeat identically across pages.
// Bare integers are excluded; those are page numbers and handled separately.
func recurringLines(pages []extract.PageText) recurrence {
	rec := recurrence{set: map[string]bool{}, counts: map[string]int{}}
	if len(pages) < headerMinPages {
		return rec
	}

	perLine := map[string]int{}  // folded line -> number of pages containing it
	firstSeen := map[string]int{}
	order := []string{}
	for pi, p := range pages {
		seen := map[string]bool{}
		for _, line := range strings.Split(p.Text, "\n") {
			t := strings.TrimSpace(line)
			if t == "" || len(t) >= headerMaxLen {
				continue
			}
			if _, err := strconv.Atoi(t); err == nil {
				continue
			}
			key := strings.ToLower(t)
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, ok := firstSeen[key]; !ok {
				firstSeen[key] = pi
				order = append(order, key)
			}
			perLine[key]++
		}
	}

	threshold := int(math.Ceil(float64(len(pages)) * headerMinRecurrence))
	if threshold < headerMinPages {
		threshold = headerMinPages
	}
	for _, key := range order {
		if n := perLine[key]; n >= threshold {
			rec.set[key] = true
			rec.counts[key] = n
			rec.ordered = append(rec.ordered, key)
		}
	}
	return rec
}

func stripRecurring(text string, remove map[string]bool) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if remove[strings.ToLower(strings.TrimSpace(line))] {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
