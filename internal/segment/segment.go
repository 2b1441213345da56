// Package segment splits normalized text into short candidate utterances,
// classifies them and removes exact duplicates.
package segment

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/textheur"
)

// CandidateType tags the syntactic shape of a segment.
type CandidateType string

const (
	TypeDialogue   CandidateType = "dialogue"
	TypeQuestion   CandidateType = "question"
	TypeImperative CandidateType = "imperative"
	TypeSentence   CandidateType = "sentence"
	TypeOther      CandidateType = "other"
)

const (
	// MinSegmentLen and MaxSegmentLen bound candidate length in runes
	// (inclusive).
	MinSegmentLen = 10
	MaxSegmentLen = 200

	minAlnumRatio   = 0.6
	maxNonWordRatio = 0.4
)

// Candidate is one segment of document text. PageIndex is the absolute
// 0-based page index in the original document, preserved through every
// downstream filtering step. For candidates cut from whole-document text it
// is back-inferred from an average-characters-per-page estimate and is best
// effort only.
type Candidate struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	RawText   string        `json:"raw_text"`
	CharCount int           `json:"char_count"`
	Type      CandidateType `json:"type"`
	PageIndex int           `json:"page_index"`
}

// Stats reports segmentation health. DuplicateRatio is duplicates over all
// length-qualified segments.
type Stats struct {
	Segments       int
	Kept           int
	Duplicates     int
	Garbage        int
	DuplicateRatio float64
}

var questionWords = []string{
	"wie", "was", "wo", "wer", "wann", "warum", "wieso", "wohin", "woher", "welche", "welcher", "welches",
	"how", "what", "where", "who", "when", "why", "which",
}

var imperativeWords = []string{
	"bitte", "geben", "nehmen", "kommen", "gehen", "machen", "sagen", "zeigen", "bringen", "lassen",
	"please", "take", "give", "go", "come", "open", "close", "ask", "tell", "listen",
}

// plain apostrophes are not treated as quote delimiters; contractions like
// "don't" would otherwise open phantom quotes
var quotePairs = [][2]rune{
	{'"', '"'}, {'„', '“'}, {'«', '»'}, {'‹', '›'}, {'“', '”'},
}

// Pages segments each page separately so candidates keep their exact page
// index.
func Pages(pages []extract.PageText) ([]Candidate, Stats) {
	d := newDeduper()
	for _, p := range pages {
		for _, raw := range splitSegments(p.Text) {
			d.add(raw, p.PageNumber-1)
		}
	}
	return d.finish()
}

// Text segments whole-document text. Page indices are back-inferred from the
// segment's character offset and the average page length; the attribution is
// approximate by construction.
func Text(text string, pageCount int, avgCharsPerPage float64) ([]Candidate, Stats) {
	d := newDeduper()
	offset := 0
	for _, raw := range splitSegments(text) {
		idx := strings.Index(text[offset:], raw)
		if idx >= 0 {
			offset += idx
		}
		page := 0
		if avgCharsPerPage > 0 {
			page = int(float64(len([]rune(text[:offset]))) / avgCharsPerPage)
		}
		if pageCount > 0 && page >= pageCount {
			page = pageCount - 1
		}
		d.add(raw, page)
		offset += len(raw)
	}
	return d.finish()
}

type deduper struct {
	seen       map[string]bool
	candidates []Candidate
	stats      Stats
}

func newDeduper() *deduper { return &deduper{seen: map[string]bool{}} }

func (d *deduper) add(raw string, pageIndex int) {
	text := strings.TrimSpace(raw)
	runes := len([]rune(text))
	if runes < MinSegmentLen || runes > MaxSegmentLen {
		return
	}
	d.stats.Segments++
	if textheur.AlnumRatio(text) < minAlnumRatio || textheur.NonWordRatio(text) > maxNonWordRatio {
		d.stats.Garbage++
		return
	}
	key := strings.ToLower(text)
	if d.seen[key] {
		d.stats.Duplicates++
		return
	}
	d.seen[key] = true
	d.candidates = append(d.candidates, Candidate{
		ID:        fmt.Sprintf("cand-%04d", len(d.candidates)+1),
		Text:      text,
		RawText:   raw,
		CharCount: runes,
		Type:      classify(text),
		PageIndex: pageIndex,
	})
}

func (d *deduper) finish() ([]Candidate, Stats) {
	d.stats.Kept = len(d.candidates)
	if qualified := d.stats.Kept + d.stats.Duplicates; qualified > 0 {
		d.stats.DuplicateRatio = float64(d.stats.Duplicates) / float64(qualified)
	}
	log.Debug().Int("kept", d.stats.Kept).Int("duplicates", d.stats.Duplicates).
		Int("garbage", d.stats.Garbage).Msg("segmentation complete")
	return d.candidates, d.stats
}

// splitSegments cuts text at sentence boundaries, double newlines and quote
// edges. Quoted spans are emitted as their own segments.
func splitSegments(text string) []string {
	var segments []string
	for _, block := range strings.Split(text, "\n\n") {
		segments = append(segments, splitBlock(block)...)
	}
	return segments
}

func splitBlock(block string) []string {
	var out []string
	runes := []rune(block)
	start := 0
	i := 0
	flush := func(end int) {
		if end > start {
			out = append(out, string(runes[start:end]))
		}
		start = end
	}
	for i < len(runes) {
		r := runes[i]
		if _, closer, ok := quoteAt(runes, i); ok {
			flush(i)
			end := findClose(runes, i+1, closer)
			if end > 0 {
				out = append(out, string(runes[i:end+1]))
				start = end + 1
				i = end + 1
				continue
			}
		}
		if isSentenceEnd(r) {
			// consume trailing closers like )" before the boundary
			j := i + 1
			for j < len(runes) && (runes[j] == '"' || runes[j] == '”' || runes[j] == ')' || runes[j] == '“') {
				j++
			}
			if j >= len(runes) || unicode.IsSpace(runes[j]) {
				flush(j)
				i = j
				continue
			}
		}
		i++
	}
	flush(len(runes))
	return out
}

func isSentenceEnd(r rune) bool { return r == '.' || r == '!' || r == '?' || r == '…' }

func quoteAt(runes []rune, i int) (rune, rune, bool) {
	for _, pair := range quotePairs {
		if runes[i] == pair[0] {
			return pair[0], pair[1], true
		}
	}
	return 0, 0, false
}

func findClose(runes []rune, from int, closer rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == closer {
			return i
		}
		// bail out of absurdly long "quotes": an unbalanced mark, not dialogue
		if i-from > MaxSegmentLen*2 {
			return -1
		}
	}
	return -1
}

// classify applies the precedence dialogue → question → imperative →
// sentence → other.
func classify(text string) CandidateType {
	if isQuoted(text) {
		return TypeDialogue
	}
	folded := textheur.Fold(text)
	if strings.HasSuffix(text, "?") || startsWithAny(folded, questionWords) {
		return TypeQuestion
	}
	if startsWithAny(folded, imperativeWords) {
		return TypeImperative
	}
	runes := []rune(text)
	if unicode.IsUpper(runes[0]) && (strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!")) {
		return TypeSentence
	}
	return TypeOther
}

func isQuoted(text string) bool {
	runes := []rune(text)
	if len(runes) < 2 {
		return false
	}
	for _, pair := range quotePairs {
		if runes[0] == pair[0] && runes[len(runes)-1] == pair[1] {
			return true
		}
	}
	return false
}

func startsWithAny(folded string, words []string) bool {
	first := folded
	if i := strings.IndexFunc(folded, unicode.IsSpace); i > 0 {
		first = folded[:i]
	}
	first = strings.TrimFunc(first, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if first == w {
			return true
		}
	}
	return false
}
