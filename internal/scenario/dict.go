// Package scenario scores candidates against per-scenario token
// dictionaries. Dictionaries are configuration, owned by the process and
// loaded once; no stage re-declares them.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dictionary is one scenario's matching vocabulary. Tokens may be single
// words or multi-word phrases; StrongTokens is a high-signal subset scored
// with extra weight. Anchors are scenario-specific phrases used only by the
// window search.
type Dictionary struct {
	Name         string   `yaml:"name"`
	Tokens       []string `yaml:"tokens"`
	StrongTokens []string `yaml:"strong_tokens"`
	Anchors      []string `yaml:"anchors"`
}

// Config is the full scenario configuration supplied by the collaborator:
// scenario dictionaries, the generic-phrase denylist and the default
// minimum-hit threshold.
type Config struct {
	Language        string       `yaml:"language"`
	MinScenarioHits int          `yaml:"min_scenario_hits"`
	Denylist        []string     `yaml:"denylist"`
	Scenarios       []Dictionary `yaml:"scenarios"`
}

// LoadConfig reads the YAML scenario configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse scenario config: %w", err)
	}
	if len(cfg.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario config %s declares no scenarios", path)
	}
	if cfg.Language == "" {
		cfg.Language = "de"
	}
	if cfg.MinScenarioHits <= 0 {
		cfg.MinScenarioHits = 2
	}
	return &cfg, nil
}

// Scenario looks a dictionary up by name.
func (c *Config) Scenario(name string) (*Dictionary, bool) {
	for i := range c.Scenarios {
		if c.Scenarios[i].Name == name {
			return &c.Scenarios[i], true
		}
	}
	return nil, false
}

// Names returns scenario names in declaration order.
func (c *Config) Names() []string {
	out := make([]string, 0, len(c.Scenarios))
	for _, s := range c.Scenarios {
		out = append(out, s.Name)
	}
	return out
}
