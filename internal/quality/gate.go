// Package quality validates a candidate set against content-quality rules.
// Hard rules block the pipeline; soft rules only warn. Both the
// candidate-pool check and the per-pack re-check call the same Evaluate with
// the same thresholds.
package quality

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/metrics"
	"github.com/local/packext/internal/scenario"
	"github.com/local/packext/internal/textheur"
)

const (
	// RuleDenylist and RuleConcreteness are the hard rules.
	RuleDenylist     = "denylisted_phrase"
	RuleConcreteness = "concreteness"

	// minConcreteCandidates is the hard floor of marker-bearing candidates.
	minConcreteCandidates = 2
	// minTokenHitShare is the soft floor on the share of candidates with at
	// least 2 scenario token hits.
	minTokenHitShare = 0.8
)

// Violation is one violated hard rule.
type Violation struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

// Result of one gate evaluation.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// GateError wraps hard-rule violations into a fatal error listing every
// violated rule.
type GateError struct {
	Violations []Violation
}

func (e *GateError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Rule, v.Detail))
	}
	return "quality gate failed: " + strings.Join(parts, "; ")
}

// Kind returns the stable machine-readable error kind.
func (e *GateError) Kind() string { return "quality_gate" }

// Evaluate checks a candidate set against the chosen scenario. Hard rules:
// no candidate may contain a denylisted generic phrase (case-insensitive
// substring), and at least 2 candidates must carry a concreteness marker.
// Soft rule: with a non-empty dictionary, at least 80% of candidates should
// have 2+ scenario token hits.
func Evaluate(cands []scenario.ScoredCandidate, dict *scenario.Dictionary, denylist []string) Result {
	res := Result{}

	for _, phrase := range denylist {
		needle := strings.ToLower(strings.TrimSpace(phrase))
		if needle == "" {
			continue
		}
		for _, c := range cands {
			if strings.Contains(strings.ToLower(c.Text), needle) {
				res.Violations = append(res.Violations, Violation{
					Rule:   RuleDenylist,
					Detail: fmt.Sprintf("candidate %s contains banned phrase %q", c.ID, phrase),
				})
				break
			}
		}
	}

	concrete := 0
	for _, c := range cands {
		if textheur.HasConcreteness(c.Text) {
			concrete++
		}
	}
	if concrete < minConcreteCandidates {
		res.Violations = append(res.Violations, Violation{
			Rule:   RuleConcreteness,
			Detail: fmt.Sprintf("only %d of %d candidates carry a concreteness marker (need %d)", concrete, len(cands), minConcreteCandidates),
		})
	}

	if len(dict.Tokens) > 0 && len(cands) > 0 {
		withHits := 0
		for _, c := range cands {
			if c.Score.ScenarioTokenHits >= 2 {
				withHits++
			}
		}
		if share := float64(withHits) / float64(len(cands)); share < minTokenHitShare {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("only %.0f%% of candidates have 2+ scenario token hits (want %.0f%%)", share*100, minTokenHitShare*100))
		}
	}

	res.Passed = len(res.Violations) == 0
	if !res.Passed {
		for _, v := range res.Violations {
			metrics.GateFailure(v.Rule)
		}
		log.Warn().Int("violations", len(res.Violations)).Msg("quality gate failed")
	}
	for _, w := range res.Warnings {
		log.Warn().Str("rule", "token_hit_share").Msg(w)
	}
	return res
}

// Err converts a failed result into a GateError, or nil when passed.
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	return &GateError{Violations: r.Violations}
}
