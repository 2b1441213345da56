// Package discover runs the window search for every known scenario to
// recommend which scenarios a document actually contains.
package discover

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/scenario"
	"github.com/local/packext/internal/segment"
	"github.com/local/packext/internal/window"
)

const (
	// minCandidatesForRecommend is the floor of candidates meeting the
	// minimum-hit threshold before a scenario can be recommended.
	minCandidatesForRecommend = 5
	// maxRecommended caps the recommended list.
	maxRecommended = 3
)

// TokenCount is one (token, candidate count) pair.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Stats summarizes one scenario's evidence across the whole document.
type Stats struct {
	Scenario              string          `json:"scenario"`
	TotalTokenHits        int             `json:"total_token_hits"`
	CandidatesWithAnyHit  int             `json:"candidates_with_any_hit"`
	CandidatesWithMinHits int             `json:"candidates_with_min_hits"`
	TopMatchedTokens      []TokenCount    `json:"top_matched_tokens"`
	BestWindow            *window.Summary `json:"best_window,omitempty"`
}

// Discovery is the ranked outcome of a discovery run.
type Discovery struct {
	Ranked      []Stats  `json:"ranked"`
	Recommended []string `json:"recommended"`
}

// Run searches every configured scenario (without anchors, which are not
// chosen yet at this point) and ranks scenarios by total token hits.
// Recommended scenarios have evidence (>0 hits) and at least 5 candidates
// meeting the minimum-hit threshold, top 3 by hits.
func Run(pages []extract.PageText, cands []segment.Candidate, cfg *scenario.Config,
	windowSize, minHits, keepTop int) Discovery {

	var d Discovery
	for i := range cfg.Scenarios {
		dict := &cfg.Scenarios[i]
		st := Stats{Scenario: dict.Name}

		tokenCounts := map[string]int{}
		tokenOrder := []string{}
		for _, c := range cands {
			b := scenario.Score(c, dict, cfg.Language, minHits)
			st.TotalTokenHits += b.ScenarioTokenHits
			if b.ScenarioTokenHits > 0 {
				st.CandidatesWithAnyHit++
			}
			if b.ScenarioTokenHits >= minHits {
				st.CandidatesWithMinHits++
			}
			for _, tok := range b.MatchedTokens {
				if tokenCounts[tok] == 0 {
					tokenOrder = append(tokenOrder, tok)
				}
				tokenCounts[tok]++
			}
		}
		st.TopMatchedTokens = rankTokens(tokenOrder, tokenCounts)

		if wins := window.Search(pages, cands, dict, cfg.Language, nil, windowSize, minHits, keepTop); len(wins) > 0 {
			best := wins[0].Summary
			st.BestWindow = &best
		}
		d.Ranked = append(d.Ranked, st)
	}

	// rank by total hits, ties by configuration order
	sort.SliceStable(d.Ranked, func(i, j int) bool {
		return d.Ranked[i].TotalTokenHits > d.Ranked[j].TotalTokenHits
	})

	for _, st := range d.Ranked {
		if len(d.Recommended) >= maxRecommended {
			break
		}
		if st.TotalTokenHits > 0 && st.CandidatesWithMinHits >= minCandidatesForRecommend {
			d.Recommended = append(d.Recommended, st.Scenario)
		}
	}

	log.Debug().Int("scenarios", len(d.Ranked)).Strs("recommended", d.Recommended).Msg("scenario discovery complete")
	return d
}

// Choose picks the scenario to extract for. Profile-preferred scenarios
// override the raw ranking, but only among scenarios the document actually
// evidences; a preference never invents a scenario with zero hits.
func Choose(d Discovery, preferred []string) (string, bool) {
	if len(d.Recommended) == 0 {
		return "", false
	}
	rec := map[string]bool{}
	for _, name := range d.Recommended {
		rec[name] = true
	}
	for _, name := range preferred {
		if rec[name] {
			return name, true
		}
	}
	return d.Recommended[0], true
}

func rankTokens(order []string, counts map[string]int) []TokenCount {
	out := make([]TokenCount, 0, len(order))
	for _, tok := range order {
		out = append(out, TokenCount{Token: tok, Count: counts[tok]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}
