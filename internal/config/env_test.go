package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "CACHE_BACKEND", "CACHE_DIR", "SCENARIO_CONFIG",
		"MAX_CANDIDATES", "METRICS_ENABLED", "AXIOM_DATASET", "ENVIRONMENT",
	} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()

	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.Dir != "cache/extraction" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Pipeline.ScenarioConfigPath != "config/scenarios.yaml" {
		t.Errorf("scenario config path = %q", cfg.Pipeline.ScenarioConfigPath)
	}
	if cfg.Pipeline.MaxCandidates != 12 || cfg.Pipeline.MinQualified != 5 {
		t.Errorf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics enabled by default")
	}
	if cfg.Axiom.Dataset != "dev_packext" {
		t.Errorf("axiom dataset = %q", cfg.Axiom.Dataset)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("CACHE_REDIS_TTL", "48h")
	t.Setenv("MAX_CANDIDATES", "20")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("AXIOM_DATASET", "prod")

	cfg := FromEnv()
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisURL != "redis://cache:6379/1" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.RedisTTL != 48*time.Hour {
		t.Errorf("ttl = %v", cfg.Cache.RedisTTL)
	}
	if cfg.Pipeline.MaxCandidates != 20 {
		t.Errorf("max candidates = %d", cfg.Pipeline.MaxCandidates)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics not enabled")
	}
	if cfg.Axiom.Dataset != "prod_packext" {
		t.Errorf("dataset = %q", cfg.Axiom.Dataset)
	}
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_CANDIDATES", "not-a-number")
	t.Setenv("CACHE_REDIS_TTL", "soon")
	cfg := FromEnv()
	if cfg.Pipeline.MaxCandidates != 12 {
		t.Errorf("max candidates = %d, want default 12", cfg.Pipeline.MaxCandidates)
	}
	if cfg.Cache.RedisTTL != 0 {
		t.Errorf("ttl = %v, want 0", cfg.Cache.RedisTTL)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "On"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "false", "", "off"} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true", v)
		}
	}
}
