// Package textheur holds the text heuristics shared by the normalizer,
// segmenter and scorer. Keeping them in one place guarantees that a line
// classified as a heading (or a marker counted as concrete) is classified
// identically at every stage.
package textheur

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var umlautReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue", "ẞ", "ss",
)

// Fold lowercases text and maps German umlauts to their ASCII digraphs
// (ä→ae, ö→oe, ü→ue, ß→ss). All token and phrase matching runs on folded
// text; Fold is idempotent.
func Fold(s string) string {
	return strings.ToLower(umlautReplacer.Replace(s))
}

var timeRe = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)

var weekdays = []string{
	"montag", "dienstag", "mittwoch", "donnerstag", "freitag", "samstag", "sonntag",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// ConcretenessMarkers returns which concreteness markers appear in the text:
// "digit", "currency", "time", "weekday". Each marker is reported at most once.
func ConcretenessMarkers(s string) []string {
	folded := Fold(s)
	var markers []string
	if strings.ContainsAny(s, "0123456789") {
		markers = append(markers, "digit")
	}
	if strings.ContainsAny(s, "€$£") || ContainsWord(folded, "euro") {
		markers = append(markers, "currency")
	}
	if timeRe.MatchString(s) {
		markers = append(markers, "time")
	}
	for _, d := range weekdays {
		if ContainsWord(folded, d) {
			markers = append(markers, "weekday")
			break
		}
	}
	return markers
}

// HasConcreteness reports whether at least one concreteness marker is present.
func HasConcreteness(s string) bool { return len(ConcretenessMarkers(s)) > 0 }

func hasTerminalPunct(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

// IsTitleCase reports whether every word of at least 4 runes starts with an
// uppercase letter. Short filler words (articles, prepositions) are ignored.
func IsTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 {
		return false
	}
	checked := 0
	for _, w := range words {
		runes := []rune(w)
		if len(runes) < 4 || !unicode.IsLetter(runes[0]) {
			continue
		}
		checked++
		if !unicode.IsUpper(runes[0]) {
			return false
		}
	}
	return checked > 0
}

// IsHeadingLike reports whether a line reads like a heading rather than
// prose: very short without terminal punctuation, ALL CAPS, or short Title
// Case without terminal punctuation.
func IsHeadingLike(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	runes := utf8.RuneCountInString(t)
	if !hasTerminalPunct(t) && runes < 12 {
		return true
	}
	if isAllCaps(t) && runes < 80 {
		return true
	}
	if !hasTerminalPunct(t) && runes < 60 && IsTitleCase(t) {
		return true
	}
	return false
}

// HeadingLineRatio is the fraction of non-empty lines that look like headings.
func HeadingLineRatio(text string) float64 {
	total, headings := 0, 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		total++
		if IsHeadingLike(l) {
			headings++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(headings) / float64(total)
}

// PunctuationDensity counts sentence-ending marks per 1000 characters.
func PunctuationDensity(text string) float64 {
	if text == "" {
		return 0
	}
	marks := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			marks++
		}
	}
	return float64(marks) / float64(utf8.RuneCountInString(text)) * 1000
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// findWord locates the next whole-word occurrence of word in folded text at
// or after start. Returns the match start and end byte offsets, or (-1, -1).
func findWord(folded, word string, start int) (int, int) {
	if word == "" {
		return -1, -1
	}
	for start <= len(folded)-len(word) {
		i := strings.Index(folded[start:], word)
		if i < 0 {
			return -1, -1
		}
		i += start
		end := i + len(word)
		left, _ := utf8.DecodeLastRuneInString(folded[:i])
		right, _ := utf8.DecodeRuneInString(folded[end:])
		leftOK := i == 0 || !isWordRune(left)
		rightOK := end == len(folded) || !isWordRune(right)
		if leftOK && rightOK {
			return i, end
		}
		start = i + 1
	}
	return -1, -1
}

// ContainsWord reports a whole-word occurrence of word in folded text.
func ContainsWord(folded, word string) bool {
	i, _ := findWord(folded, word, 0)
	return i >= 0
}

// CountWord counts non-overlapping whole-word occurrences of word.
func CountWord(folded, word string) int {
	n, start := 0, 0
	for {
		i, end := findWord(folded, word, start)
		if i < 0 {
			return n
		}
		n++
		start = end
	}
}

// PhraseGapLimit is the maximum number of folded runes tolerated between
// consecutive word matches of a multi-word phrase.
const PhraseGapLimit = 50

// MatchPhrase reports whether every word of phrase appears in folded text in
// left-to-right order with at most PhraseGapLimit runes between consecutive
// word matches. The match is existential over occurrences: any chain of
// in-order occurrences that keeps every gap within the limit counts, so a
// repeated inner word never hides a later, closer occurrence. This is
// deliberately not a substring match: it tolerates intervening punctuation
// and formatting. Both inputs must already be folded.
func MatchPhrase(folded, phrase string) bool {
	words := strings.Fields(phrase)
	switch len(words) {
	case 0:
		return false
	case 1:
		return ContainsWord(folded, words[0])
	}
	ends := wordEnds(folded, words[0])
	for _, w := range words[1:] {
		if len(ends) == 0 {
			return false
		}
		var next []int
		from := 0
		for {
			i, end := findWord(folded, w, from)
			if i < 0 {
				break
			}
			if chainable(folded, ends, i) {
				next = append(next, end)
			}
			from = i + 1
		}
		ends = next
	}
	return len(ends) > 0
}

// wordEnds returns the end offsets of every whole-word occurrence, ascending.
func wordEnds(folded, word string) []int {
	var ends []int
	from := 0
	for {
		i, end := findWord(folded, word, from)
		if i < 0 {
			return ends
		}
		ends = append(ends, end)
		from = i + 1
	}
}

// chainable reports whether some previous match ending at or before start is
// within PhraseGapLimit runes of it. ends is ascending, so the closest
// predecessor is the last one not past start.
func chainable(folded string, ends []int, start int) bool {
	prev := -1
	for _, e := range ends {
		if e > start {
			break
		}
		prev = e
	}
	if prev < 0 {
		return false
	}
	return utf8.RuneCountInString(folded[prev:start]) <= PhraseGapLimit
}

// AlnumRatio is the fraction of runes that are letters or digits.
func AlnumRatio(s string) float64 {
	total, alnum := 0, 0
	for _, r := range s {
		total++
		if isWordRune(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

// NonWordRatio is the fraction of runes that are neither letters, digits,
// spaces, apostrophes nor hyphens.
func NonWordRatio(s string) float64 {
	total, nonWord := 0, 0
	for _, r := range s {
		total++
		if !isWordRune(r) && !unicode.IsSpace(r) && r != '\'' && r != '-' {
			nonWord++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(nonWord) / float64(total)
}
