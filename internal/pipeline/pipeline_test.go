package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/profile"
	"github.com/local/packext/internal/scenario"
)

func testScenarios() *scenario.Config {
	return &scenario.Config{
		Language:        "de",
		MinScenarioHits: 2,
		Denylist:        []string{"guten tag"},
		Scenarios: []scenario.Dictionary{
			{
				Name:         "restaurant",
				Tokens:       []string{"kellner", "speisekarte", "rechnung", "bestellen", "tisch"},
				StrongTokens: []string{"speisekarte", "rechnung"},
			},
			{
				Name:   "arzt",
				Tokens: []string{"termin", "praxis", "schmerzen"},
			},
		},
	}
}

func fillerPage(tag rune) string {
	return strings.Repeat(fmt.Sprintf(
		"Der ruhige Absatz mit der Kennung %c handelt vom Wetter und vom Alltag in der kleinen Stadt. ", tag), 4)
}

var restaurantSentences = []string{
	"Der Kellner bringt die Speisekarte direkt an unseren Platz.",
	"Wir möchten gern zwei Schnitzel bestellen, sagt der Gast dem Kellner.",
	"Die Rechnung über 42 Euro bringt der Kellner erst um 21:15.",
	"Am Montag studiert Herr Braun die Speisekarte, der Kellner wartet derweil.",
	"Zum Schluss fragt der Gast den Kellner nach der Rechnung und zahlt 30 Euro.",
	"Der Kellner empfiehlt, die Suppe zu bestellen und die Speisekarte zu behalten.",
}

// writeTestDocument builds a plain-text source with form-feed page breaks:
// filler on pages 1-4 and 7-8, restaurant dialogue on pages 5-6.
func writeTestDocument(t *testing.T) string {
	t.Helper()
	pages := []string{
		fillerPage('A'), fillerPage('B'), fillerPage('C'), fillerPage('D'),
		strings.Join(restaurantSentences[:3], " ") + " " + fillerPage('E'),
		strings.Join(restaurantSentences[3:], " ") + " " + fillerPage('F'),
		fillerPage('G'), fillerPage('H'),
	}
	path := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPipeline(t *testing.T, prof *profile.Profile) *Pipeline {
	t.Helper()
	return &Pipeline{
		Cache:   extract.NewCache(extract.NewFileStore(t.TempDir()), &extract.Extractor{}),
		Config:  testScenarios(),
		Profile: prof,
	}
}

func baseParams(src string) Params {
	return Params{
		SourceRef:       src,
		SourceID:        "test-source",
		Level:           "A2",
		WindowSizePages: 2,
		MaxCandidates:   4,
	}
}

func TestRunEndToEnd(t *testing.T) {
	src := writeTestDocument(t)
	p := newTestPipeline(t, nil)

	sel, err := p.Run(context.Background(), baseParams(src))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sel.Scenario != "restaurant" {
		t.Fatalf("scenario = %q, want restaurant", sel.Scenario)
	}
	if sel.Window.StartPage > 5 || sel.Window.EndPage < 6 {
		t.Fatalf("window %d-%d misses the dialogue pages", sel.Window.StartPage, sel.Window.EndPage)
	}
	if len(sel.Candidates) != 4 {
		t.Fatalf("candidates = %d, want 4 (max)", len(sel.Candidates))
	}
	for _, c := range sel.Candidates {
		if c.Score.ScenarioTokenHits < 1 {
			t.Fatalf("unqualified candidate selected: %+v", c)
		}
	}
	if sel.RunID == "" || sel.Report.RunID != sel.RunID {
		t.Fatalf("run id bookkeeping wrong: %q vs %q", sel.RunID, sel.Report.RunID)
	}
	if sel.Report.PageCount != 8 {
		t.Fatalf("page count = %d, want 8", sel.Report.PageCount)
	}
	if sel.Report.CacheHit {
		t.Fatal("first run must not be a cache hit")
	}
	if len(sel.Report.Discovery.Recommended) == 0 || sel.Report.Discovery.Recommended[0] != "restaurant" {
		t.Fatalf("discovery recommended = %v", sel.Report.Discovery.Recommended)
	}
	for _, stage := range []string{"fetch", "extract", "front_matter", "normalize", "segment", "discover", "window_search", "quality_gate", "select"} {
		if _, ok := sel.Report.StageDurations[stage]; !ok {
			t.Fatalf("stage %s missing from durations", stage)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	src := writeTestDocument(t)
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	first, err := p.Run(ctx, baseParams(src))
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(ctx, baseParams(src))
	if err != nil {
		t.Fatal(err)
	}

	if !second.Report.CacheHit {
		t.Fatal("second run must hit the extraction cache")
	}
	if first.Seed != second.Seed {
		t.Fatalf("seeds differ: %d vs %d", first.Seed, second.Seed)
	}
	if first.Window != second.Window {
		t.Fatalf("windows differ: %+v vs %+v", first.Window, second.Window)
	}
	if len(first.Candidates) != len(second.Candidates) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first.Candidates), len(second.Candidates))
	}
	for i := range first.Candidates {
		if first.Candidates[i].ID != second.Candidates[i].ID {
			t.Fatalf("candidate order differs at %d: %s vs %s",
				i, first.Candidates[i].ID, second.Candidates[i].ID)
		}
	}
}

func TestRunLevelChangesSelection(t *testing.T) {
	src := writeTestDocument(t)
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	a2Params := baseParams(src)
	b1Params := baseParams(src)
	b1Params.Level = "B1"

	a2, err := p.Run(ctx, a2Params)
	if err != nil {
		t.Fatal(err)
	}
	b1, err := p.Run(ctx, b1Params)
	if err != nil {
		t.Fatal(err)
	}
	if a2.Seed == b1.Seed {
		t.Fatal("level must feed the selection seed")
	}
}

func TestRunScenarioOverride(t *testing.T) {
	src := writeTestDocument(t)
	p := newTestPipeline(t, nil)

	params := baseParams(src)
	params.Scenario = "arzt"
	_, err := p.Run(context.Background(), params)
	var insufficient *InsufficientEvidenceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want insufficient evidence for arzt", err)
	}
	if insufficient.Scenario != "arzt" {
		t.Fatalf("error scenario = %q", insufficient.Scenario)
	}
}

func TestRunUnknownScenario(t *testing.T) {
	src := writeTestDocument(t)
	p := newTestPipeline(t, nil)
	params := baseParams(src)
	params.Scenario = "flughafen"
	if _, err := p.Run(context.Background(), params); err == nil {
		t.Fatal("unknown scenario must fail")
	}
}

func TestRunProfileSkipAndReject(t *testing.T) {
	src := writeTestDocument(t)
	prof := &profile.Profile{
		SourceID:       "test-source",
		Language:       "de",
		SkipPages:      profile.SkipPages{Indices: []int{0, 1}},
		RejectSections: []string{"Schnitzel"},
	}
	p := newTestPipeline(t, prof)

	sel, err := p.Run(context.Background(), baseParams(src))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sel.Report.SkippedPages < 2 {
		t.Fatalf("skipped = %d, want >= 2", sel.Report.SkippedPages)
	}
	for _, c := range sel.Candidates {
		if strings.Contains(c.Text, "Schnitzel") {
			t.Fatalf("rejected section leaked into selection: %q", c.Text)
		}
	}
}

func TestRunNoEligiblePages(t *testing.T) {
	src := writeTestDocument(t)
	ctx := context.Background()

	// preferred ranges entirely past the document leave nothing eligible
	past := &profile.Profile{
		SourceID:         "test-source",
		PreferPageRanges: []string{"100-110"},
	}
	_, err := newTestPipeline(t, past).Run(ctx, baseParams(src))
	if KindOf(err) != "insufficient_evidence" {
		t.Fatalf("error = %v, want insufficient_evidence", err)
	}

	// so does a skip set covering every page
	all := &profile.Profile{
		SourceID:  "test-source",
		SkipPages: profile.SkipPages{Ranges: []string{"0-7"}},
	}
	_, err = newTestPipeline(t, all).Run(ctx, baseParams(src))
	if KindOf(err) != "insufficient_evidence" {
		t.Fatalf("error = %v, want insufficient_evidence", err)
	}
}

func TestRunScannedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thin.txt")
	if err := os.WriteFile(path, []byte("kaum text\fnoch weniger"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := newTestPipeline(t, nil)
	_, err := p.Run(context.Background(), baseParams(path))
	if KindOf(err) != "scanned_document" {
		t.Fatalf("error = %v, want scanned_document", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	src := writeTestDocument(t)
	p := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, baseParams(src)); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
