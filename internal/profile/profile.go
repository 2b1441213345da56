// Package profile loads per-source ingestion profiles: which pages to skip
// or prefer, which scenarios to favor and which sections to reject. Loaded
// once per run, read-only afterwards.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Error marks a missing or invalid profile field. Fatal, no retry.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid ingestion profile: %s: %s", e.Field, e.Message)
}

// Kind returns the stable machine-readable error kind.
func (e *Error) Kind() string { return "invalid_profile" }

// SkipPages accepts either a literal JSON array of 0-based page indices or
// an object {"ranges": ["a-b", ...]} with inclusive bounds.
type SkipPages struct {
	Indices []int
	Ranges  []string
}

func (s *SkipPages) UnmarshalJSON(data []byte) error {
	var indices []int
	if err := json.Unmarshal(data, &indices); err == nil {
		s.Indices = indices
		return nil
	}
	var obj struct {
		Ranges []string `json:"ranges"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("skip_pages must be an index array or {\"ranges\": [...]}")
	}
	s.Ranges = obj.Ranges
	return nil
}

func (s SkipPages) MarshalJSON() ([]byte, error) {
	if len(s.Ranges) > 0 {
		return json.Marshal(struct {
			Ranges []string `json:"ranges"`
		}{Ranges: s.Ranges})
	}
	if s.Indices == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Indices)
}

// Profile governs which pages and candidates of one source are eligible
// before scoring.
type Profile struct {
	SourceID         string    `json:"source_id"`
	Language         string    `json:"language"`
	DefaultScenarios []string  `json:"default_scenarios"`
	Anchors          []string  `json:"anchors"`
	SkipPages        SkipPages `json:"skip_pages"`
	PreferPageRanges []string  `json:"prefer_page_ranges"`
	WindowSizePages  int       `json:"window_size_pages"`
	MinScenarioHits  int       `json:"min_scenario_hits"`
	RejectSections   []string  `json:"reject_sections"`
}

// Load reads and validates one profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &Error{Field: "(document)", Message: err.Error()}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.SourceID == "" {
		return &Error{Field: "source_id", Message: "required"}
	}
	if p.Language == "" {
		p.Language = "de"
	}
	if p.WindowSizePages < 0 {
		return &Error{Field: "window_size_pages", Message: "must not be negative"}
	}
	if p.MinScenarioHits < 0 {
		return &Error{Field: "min_scenario_hits", Message: "must not be negative"}
	}
	for _, r := range append(append([]string{}, p.SkipPages.Ranges...), p.PreferPageRanges...) {
		if _, _, err := ParseRange(r); err != nil {
			return &Error{Field: "ranges", Message: err.Error()}
		}
	}
	return nil
}

// ParseRange parses an inclusive "a-b" page range.
func ParseRange(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range %q: want \"a-b\"", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %v", s, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %v", s, err)
	}
	if a < 0 || b < a {
		return 0, 0, fmt.Errorf("range %q: bounds out of order", s)
	}
	return a, b, nil
}

// SkipSet expands skip_pages into a set of 0-based page indices, dropping
// anything past pageCount.
func (p *Profile) SkipSet(pageCount int) map[int]bool {
	set := map[int]bool{}
	for _, i := range p.SkipPages.Indices {
		if i >= 0 && i < pageCount {
			set[i] = true
		}
	}
	for _, r := range p.SkipPages.Ranges {
		a, b, err := ParseRange(r)
		if err != nil {
			continue // validated at load time
		}
		for i := a; i <= b && i < pageCount; i++ {
			set[i] = true
		}
	}
	return set
}

// PreferSet expands prefer_page_ranges into a set of 0-based page indices.
// Empty when no preference is configured.
func (p *Profile) PreferSet(pageCount int) map[int]bool {
	if len(p.PreferPageRanges) == 0 {
		return nil
	}
	set := map[int]bool{}
	for _, r := range p.PreferPageRanges {
		a, b, err := ParseRange(r)
		if err != nil {
			continue
		}
		for i := a; i <= b && i < pageCount; i++ {
			set[i] = true
		}
	}
	return set
}

// RejectsText reports whether text matches one of the profile's
// reject_sections phrases (case-insensitive substring).
func (p *Profile) RejectsText(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range p.RejectSections {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" && strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
