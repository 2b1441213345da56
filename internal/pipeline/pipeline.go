// Package pipeline composes the extraction stages into one deterministic
// run: fetch, extract (cached), front-matter skip, normalize, segment,
// scenario discovery, window search, quality gate, seeded selection. Stages
// run strictly in order; the only feedback loop is discovery informing the
// scenario-specific window pass.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/discover"
	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/fetch"
	"github.com/local/packext/internal/frontmatter"
	"github.com/local/packext/internal/metrics"
	"github.com/local/packext/internal/normalize"
	"github.com/local/packext/internal/profile"
	"github.com/local/packext/internal/quality"
	"github.com/local/packext/internal/randsel"
	"github.com/local/packext/internal/scenario"
	"github.com/local/packext/internal/segment"
	"github.com/local/packext/internal/window"
)

// Params configures one run. Scenario overrides discovery; Level is carried
// into the selection seed so different difficulty levels of the same source
// pick different candidates.
type Params struct {
	SourceRef          string
	SourceID           string
	Scenario           string
	Level              string
	MaxCandidates      int
	WindowSizePages    int
	MinScenarioHits    int
	MinQualified       int
	TopWindows         int
	FrontMatterMaxScan int
	EnableOCR          bool
	Fetch              fetch.Options
}

func (p *Params) applyDefaults() {
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = 12
	}
	// WindowSizePages and MinScenarioHits stay zero here; profile and
	// scenario config fill them in per run
	if p.MinQualified <= 0 {
		p.MinQualified = 5
	}
	if p.TopWindows <= 0 {
		p.TopWindows = 3
	}
	if p.FrontMatterMaxScan <= 0 {
		p.FrontMatterMaxScan = frontmatter.DefaultMaxScan
	}
}

// Report is the auditable trail of one run.
type Report struct {
	RunID            string                     `json:"run_id"`
	CacheHit         bool                       `json:"cache_hit"`
	CacheKey         string                     `json:"cache_key"`
	PageCount        int                        `json:"page_count"`
	SkippedPages     int                        `json:"skipped_pages"`
	FrontMatter      []frontmatter.PageEvidence `json:"front_matter,omitempty"`
	NormalizeActions []string                   `json:"normalize_actions,omitempty"`
	SegmentStats     segment.Stats              `json:"segment_stats"`
	Discovery        discover.Discovery         `json:"discovery"`
	GateWarnings     []string                   `json:"gate_warnings,omitempty"`
	Warnings         []string                   `json:"warnings,omitempty"`
	StageDurations   map[string]time.Duration   `json:"stage_durations"`
}

// Selection is the collaborator contract handed to pack assembly: scored
// candidates in final order, the chosen scenario and the chosen window.
type Selection struct {
	RunID      string                     `json:"run_id"`
	SourceID   string                     `json:"source_id"`
	Scenario   string                     `json:"scenario"`
	Window     window.Summary             `json:"window"`
	Candidates []scenario.ScoredCandidate `json:"candidates"`
	Seed       uint32                     `json:"seed"`
	Report     Report                     `json:"report"`
}

// Pipeline holds the per-process collaborators: the extraction cache, the
// scenario configuration (loaded once, injected everywhere) and optional
// per-source profiles.
type Pipeline struct {
	Cache   *extract.Cache
	Config  *scenario.Config
	Profile *profile.Profile // optional
}

// runState carries data between stages. Each stage reads what upstream
// produced and fills its own slot.
type runState struct {
	params      Params
	prof        *profile.Profile
	localPath   string
	cleanup     func()
	contentHash string
	extraction  *extract.Result
	pages       []extract.PageText // eligible pages after skipping, original numbering
	candidates  []segment.Candidate
	dict        *scenario.Dictionary
	anchors     []string
	windows     []window.Window
	selection   *Selection
}

type stage struct {
	name string
	run  func(context.Context, *runState) error
}

// Run executes the full pipeline for one source document.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Selection, error) {
	params.applyDefaults()
	st := &runState{params: params, prof: p.Profile, cleanup: func() {}}
	st.selection = &Selection{
		RunID:    uuid.NewString(),
		SourceID: params.SourceID,
	}
	st.selection.Report.RunID = st.selection.RunID
	st.selection.Report.StageDurations = map[string]time.Duration{}
	defer func() { st.cleanup() }()

	stages := []stage{
		{"fetch", p.stageFetch},
		{"extract", p.stageExtract},
		{"front_matter", p.stageFrontMatter},
		{"normalize", p.stageNormalize},
		{"segment", p.stageSegment},
		{"discover", p.stageDiscover},
		{"window_search", p.stageWindowSearch},
		{"quality_gate", p.stageQualityGate},
		{"select", p.stageSelect},
	}
	for _, s := range stages {
		// cancellation is cooperative and only between stages; a started
		// stage always runs to completion
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		err := s.run(ctx, st)
		dur := time.Since(start)
		st.selection.Report.StageDurations[s.name] = dur
		metrics.ObserveStage(s.name, dur)
		if err != nil {
			metrics.DocumentProcessed(errResult(err))
			log.Error().Err(err).Str("stage", s.name).Str("run", st.selection.RunID).Msg("pipeline stage failed")
			return nil, err
		}
		log.Debug().Str("stage", s.name).Dur("took", dur).Msg("stage complete")
	}

	metrics.DocumentProcessed("success")
	return st.selection, nil
}

func errResult(err error) string {
	if kind := KindOf(err); kind != "" {
		return kind
	}
	return "error"
}

func (p *Pipeline) stageFetch(ctx context.Context, st *runState) error {
	local, cleanup, err := fetch.EnsureLocal(ctx, st.params.SourceRef, st.params.Fetch)
	if err != nil {
		return err
	}
	st.localPath = local
	st.cleanup = cleanup
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	st.contentHash = extract.ContentHash(data)
	st.selection.Report.CacheKey = extract.CacheKey(data, p.Cache.Version)
	return nil
}

func (p *Pipeline) stageExtract(ctx context.Context, st *runState) error {
	res, _, hit, err := p.Cache.ExtractAndCache(ctx, st.params.SourceID, st.localPath)
	if err != nil {
		return err
	}
	st.extraction = res
	st.selection.Report.CacheHit = hit
	st.selection.Report.PageCount = res.PageCount
	st.selection.Report.Warnings = append(st.selection.Report.Warnings, res.Warnings...)
	if !hit {
		metrics.AddPagesExtracted(res.PageCount)
	}
	return nil
}

func (p *Pipeline) stageFrontMatter(_ context.Context, st *runState) error {
	fm := frontmatter.Detect(st.extraction.Pages, st.params.FrontMatterMaxScan)
	st.selection.Report.FrontMatter = fm.Flagged

	skip := map[int]bool{}
	for i := 0; i < fm.SkipPages; i++ {
		skip[i] = true
	}
	if st.prof != nil {
		for i := range st.prof.SkipSet(st.extraction.PageCount) {
			skip[i] = true
		}
	}
	prefer := map[int]bool(nil)
	if st.prof != nil {
		prefer = st.prof.PreferSet(st.extraction.PageCount)
	}

	for _, page := range st.extraction.Pages {
		idx := page.PageNumber - 1
		if skip[idx] {
			continue
		}
		if prefer != nil && !prefer[idx] {
			continue
		}
		st.pages = append(st.pages, page)
	}
	st.selection.Report.SkippedPages = st.extraction.PageCount - len(st.pages)
	if len(st.pages) == 0 {
		// skip set and page preferences can legitimately exclude everything
		return &InsufficientEvidenceError{
			Scenario: "(no eligible pages)",
			Required: st.params.MinQualified,
		}
	}
	return nil
}

func (p *Pipeline) stageNormalize(_ context.Context, st *runState) error {
	res := normalize.Document(st.pages)
	st.pages = res.Pages
	st.selection.Report.NormalizeActions = res.Actions
	return nil
}

func (p *Pipeline) stageSegment(_ context.Context, st *runState) error {
	cands, stats := segment.Pages(st.pages)
	if st.prof != nil {
		kept := cands[:0]
		rejected := 0
		for _, c := range cands {
			if st.prof.RejectsText(c.Text) {
				rejected++
				continue
			}
			kept = append(kept, c)
		}
		cands = kept
		metrics.AddCandidates("rejected", rejected)
	}
	st.candidates = cands
	st.selection.Report.SegmentStats = stats
	metrics.AddCandidates("kept", len(cands))
	metrics.AddCandidates("duplicate", stats.Duplicates)
	metrics.AddCandidates("garbage", stats.Garbage)
	return nil
}

func (p *Pipeline) stageDiscover(_ context.Context, st *runState) error {
	minHits := p.minHits(st)
	d := discover.Run(st.pages, st.candidates, p.Config, p.windowSize(st), minHits, st.params.TopWindows)
	st.selection.Report.Discovery = d

	name := st.params.Scenario
	if name == "" {
		var preferred []string
		if st.prof != nil {
			preferred = st.prof.DefaultScenarios
		}
		chosen, ok := discover.Choose(d, preferred)
		if !ok {
			return &InsufficientEvidenceError{
				Scenario: "(none discovered)",
				Required: st.params.MinQualified,
				Ranking:  d.Ranked,
			}
		}
		name = chosen
	}

	dict, ok := p.Config.Scenario(name)
	if !ok {
		return fmt.Errorf("scenario %q not present in configuration", name)
	}
	st.dict = dict
	st.selection.Scenario = name

	st.anchors = append(st.anchors, dict.Anchors...)
	if st.prof != nil {
		st.anchors = append(st.anchors, st.prof.Anchors...)
	}
	return nil
}

func (p *Pipeline) stageWindowSearch(_ context.Context, st *runState) error {
	st.windows = window.Search(st.pages, st.candidates, st.dict, p.Config.Language,
		st.anchors, p.windowSize(st), p.minHits(st), st.params.TopWindows)
	if len(st.windows) == 0 {
		return &InsufficientEvidenceError{
			Scenario: st.dict.Name,
			Required: st.params.MinQualified,
			Ranking:  st.selection.Report.Discovery.Ranked,
		}
	}

	best := st.windows[0]
	if best.QualifiedCandidates < st.params.MinQualified {
		summary := best.Summary
		return &InsufficientEvidenceError{
			Scenario:   st.dict.Name,
			Qualified:  best.QualifiedCandidates,
			Required:   st.params.MinQualified,
			Ranking:    st.selection.Report.Discovery.Ranked,
			BestWindow: &summary,
		}
	}
	st.selection.Window = best.Summary

	minHits := p.minHits(st)
	qualified := make([]scenario.ScoredCandidate, 0, best.QualifiedCandidates)
	for _, sc := range best.Candidates {
		if window.Qualified(sc.Score, minHits) {
			qualified = append(qualified, sc)
		}
	}
	st.selection.Candidates = qualified
	return nil
}

func (p *Pipeline) stageQualityGate(_ context.Context, st *runState) error {
	res := quality.Evaluate(st.selection.Candidates, st.dict, p.Config.Denylist)
	st.selection.Report.GateWarnings = res.Warnings
	return res.Err()
}

func (p *Pipeline) stageSelect(_ context.Context, st *runState) error {
	seedParams := fmt.Sprintf("scenario=%s;level=%s;window=%d;minhits=%d;max=%d",
		st.selection.Scenario, st.params.Level, p.windowSize(st), p.minHits(st), st.params.MaxCandidates)
	seed := randsel.DeriveSeed(st.contentHash, seedParams)
	st.selection.Seed = seed

	sel := randsel.New(seed)
	randsel.Shuffle(sel, st.selection.Candidates)
	if len(st.selection.Candidates) > st.params.MaxCandidates {
		st.selection.Candidates = st.selection.Candidates[:st.params.MaxCandidates]
	}
	metrics.AddCandidates("selected", len(st.selection.Candidates))
	log.Info().Str("run", st.selection.RunID).Str("scenario", st.selection.Scenario).
		Int("candidates", len(st.selection.Candidates)).
		Int("start_page", st.selection.Window.StartPage).Int("end_page", st.selection.Window.EndPage).
		Msg("selection complete")
	return nil
}

// windowSize resolves the effective window size: explicit param, then
// profile, then default.
func (p *Pipeline) windowSize(st *runState) int {
	if st.params.WindowSizePages > 0 {
		return st.params.WindowSizePages
	}
	if st.prof != nil && st.prof.WindowSizePages > 0 {
		return st.prof.WindowSizePages
	}
	return 6
}

// minHits resolves the minimum-hit threshold: param, profile, scenario
// config.
func (p *Pipeline) minHits(st *runState) int {
	if st.params.MinScenarioHits > 0 {
		return st.params.MinScenarioHits
	}
	if st.prof != nil && st.prof.MinScenarioHits > 0 {
		return st.prof.MinScenarioHits
	}
	return p.Config.MinScenarioHits
}
