package scenario

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/local/packext/internal/segment"
	"github.com/local/packext/internal/textheur"
)

// Scoring weights. The reasons trail follows the order the terms are listed
// here.
const (
	tokenWeight       = 5.0
	strongTokenWeight = 3.0

	speakerLineBonus = 3.0
	questionBonus    = 2.0
	pronounBonus     = 2.0

	concretenessPerMarker = 1.0

	headingPenalty = 5.0
	lengthPenalty  = 3.0

	// length bounds for the penalty, in runes
	penaltyMinLen = 35
	penaltyMaxLen = 200
)

// ScoreBreakdown explains how a candidate scored against one scenario.
// MatchedTokens and Reasons are ordered; Reasons follows bonus/penalty
// evaluation order for debugging.
type ScoreBreakdown struct {
	TotalScore        float64  `json:"total_score"`
	ScenarioTokenHits int      `json:"scenario_token_hits"`
	StrongTokenHits   int      `json:"strong_token_hits"`
	DialogueBonus     float64  `json:"dialogue_bonus"`
	ConcretenessBonus float64  `json:"concreteness_bonus"`
	HeadingPenalty    float64  `json:"heading_penalty"`
	LengthPenalty     float64  `json:"length_penalty"`
	MatchedTokens     []string `json:"matched_tokens"`
	Reasons           []string `json:"reasons"`
}

// ScoredCandidate pairs a candidate with its breakdown for one scoring pass.
type ScoredCandidate struct {
	segment.Candidate
	Score ScoreBreakdown `json:"score"`
}

var speakerLineRe = regexp.MustCompile(`^\s*\p{Lu}[\p{L} .]{0,24}:\s`)

var pronouns = []string{
	"ich", "du", "sie", "wir", "ihr", "er", "es",
	"i", "you", "we", "they", "he", "she",
}

// Score evaluates one candidate against a scenario dictionary. Matching runs
// on folded text (lower-cased, umlauts mapped) everywhere, including
// multi-word phrases. The language and minHits parameters are carried for
// interface consistency with the discoverer; minHits is applied by the
// window search, not here.
func Score(c segment.Candidate, dict *Dictionary, language string, minHits int) ScoreBreakdown {
	_ = language
	_ = minHits

	folded := textheur.Fold(c.Text)
	var b ScoreBreakdown

	for _, tok := range dict.Tokens {
		if matchToken(folded, tok) {
			b.ScenarioTokenHits++
			b.MatchedTokens = append(b.MatchedTokens, tok)
		}
	}
	if b.ScenarioTokenHits > 0 {
		b.Reasons = append(b.Reasons, fmt.Sprintf("%d scenario token(s): %s",
			b.ScenarioTokenHits, strings.Join(b.MatchedTokens, ", ")))
	}

	for _, tok := range dict.StrongTokens {
		if matchToken(folded, tok) {
			b.StrongTokenHits++
		}
	}
	if b.StrongTokenHits > 0 {
		b.Reasons = append(b.Reasons, fmt.Sprintf("%d strong token(s)", b.StrongTokenHits))
	}

	// dialogue bonuses are mutually exclusive; highest-priority match wins
	switch {
	case speakerLineRe.MatchString(c.Text):
		b.DialogueBonus = speakerLineBonus
		b.Reasons = append(b.Reasons, "speaker line")
	case strings.Contains(c.Text, "?"):
		b.DialogueBonus = questionBonus
		b.Reasons = append(b.Reasons, "question mark")
	case hasPronoun(folded):
		b.DialogueBonus = pronounBonus
		b.Reasons = append(b.Reasons, "pronoun usage")
	}

	if markers := textheur.ConcretenessMarkers(c.Text); len(markers) > 0 {
		b.ConcretenessBonus = concretenessPerMarker * float64(len(markers))
		b.Reasons = append(b.Reasons, fmt.Sprintf("concrete: %s", strings.Join(markers, ", ")))
	}

	if textheur.IsHeadingLike(c.Text) {
		b.HeadingPenalty = headingPenalty
		b.Reasons = append(b.Reasons, "heading-like")
	}

	if c.CharCount < penaltyMinLen || c.CharCount > penaltyMaxLen {
		b.LengthPenalty = lengthPenalty
		b.Reasons = append(b.Reasons, fmt.Sprintf("length %d outside [%d,%d]", c.CharCount, penaltyMinLen, penaltyMaxLen))
	}

	b.TotalScore = tokenWeight*float64(b.ScenarioTokenHits) +
		strongTokenWeight*float64(b.StrongTokenHits) +
		b.DialogueBonus + b.ConcretenessBonus -
		b.HeadingPenalty - b.LengthPenalty
	return b
}

// matchToken matches a single word as a whole word and a multi-word phrase
// with the ordered gap-tolerant phrase rule.
func matchToken(folded, token string) bool {
	tok := textheur.Fold(strings.TrimSpace(token))
	if tok == "" {
		return false
	}
	if strings.ContainsAny(tok, " \t") {
		return textheur.MatchPhrase(folded, tok)
	}
	return textheur.ContainsWord(folded, tok)
}

func hasPronoun(folded string) bool {
	for _, p := range pronouns {
		if textheur.ContainsWord(folded, p) {
			return true
		}
	}
	return false
}
