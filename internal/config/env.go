package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// CacheConfig selects and configures the extraction cache store.
type CacheConfig struct {
	Backend  string // "file" | "redis"
	Dir      string
	RedisURL string
	RedisTTL time.Duration
}

// FetchConfig configures source acquisition.
type FetchConfig struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	Password     string
}

// PipelineConfig holds the run defaults. Profiles and CLI flags override
// them per run.
type PipelineConfig struct {
	ScenarioConfigPath string
	ProfileDir         string
	MaxCandidates      int
	MinQualified       int
	TopWindows         int
	FrontMatterMaxScan int
}

// MetricsConfig controls the optional metrics listener.
type MetricsConfig struct {
	Enabled bool
	Port    string
}

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig
	Axiom    AxiomConfig
	Cache    CacheConfig
	Fetch    FetchConfig
	Pipeline PipelineConfig
	Metrics  MetricsConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/packext.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_packext",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Cache = CacheConfig{
		Backend:  getEnv("CACHE_BACKEND", "file"),
		Dir:      getEnv("CACHE_DIR", "cache/extraction"),
		RedisURL: getEnv("CACHE_REDIS_URL", "redis://localhost:6379"),
		RedisTTL: parseDuration(getEnv("CACHE_REDIS_TTL", "0"), 0),
	}

	cfg.Fetch = FetchConfig{
		AWSRegion:    getEnv("AWS_REGION", ""),
		AWSAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Password:     getEnv("SOURCE_PASSWORD", ""),
	}

	cfg.Pipeline = PipelineConfig{
		ScenarioConfigPath: getEnv("SCENARIO_CONFIG", "config/scenarios.yaml"),
		ProfileDir:         getEnv("PROFILE_DIR", "config/profiles"),
		MaxCandidates:      parseInt(getEnv("MAX_CANDIDATES", "12"), 12),
		MinQualified:       parseInt(getEnv("MIN_QUALIFIED", "5"), 5),
		TopWindows:         parseInt(getEnv("TOP_WINDOWS", "3"), 3),
		FrontMatterMaxScan: parseInt(getEnv("FRONT_MATTER_MAX_SCAN", "40"), 40),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: parseBool(getEnv("METRICS_ENABLED", "0")),
		Port:    getEnv("METRICS_PORT", "9090"),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
