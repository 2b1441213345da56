package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/packext/internal/config"
	"github.com/local/packext/internal/extract"
	"github.com/local/packext/internal/fetch"
	logpkg "github.com/local/packext/internal/logger"
	"github.com/local/packext/internal/metrics"
	"github.com/local/packext/internal/pipeline"
	"github.com/local/packext/internal/profile"
	"github.com/local/packext/internal/scenario"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	var (
		sourceRef   = flag.String("source", "", "source document ref (path, file://, http(s)://, s3://)")
		sourceID    = flag.String("id", "", "source id (cache and profile key)")
		scenarioArg = flag.String("scenario", "", "scenario override (skips discovery choice)")
		level       = flag.String("level", "", "target level, mixed into the selection seed")
		profilePath = flag.String("profile", "", "ingestion profile path (default: <profile dir>/<id>.json)")
		outPath     = flag.String("out", "", "write selection JSON here instead of stdout")
		windowSize  = flag.Int("window", 0, "window size in pages (0: profile or default)")
		minHits     = flag.Int("min-hits", 0, "min scenario token hits per candidate (0: profile or config)")
		ocr         = flag.Bool("ocr", false, "request OCR for image-only sources")
	)
	flag.Parse()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	if *sourceRef == "" || *sourceID == "" {
		fmt.Fprintln(os.Stderr, "usage: packext -source <ref> -id <source-id> [-scenario name] [-level A1] [-out file]")
		return 1
	}

	metrics.Init()
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			addr := ":" + cfg.Metrics.Port
			log.Info().Str("addr", addr).Msg("metrics listener up")
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	scenarios, err := scenario.LoadConfig(cfg.Pipeline.ScenarioConfigPath)
	if err != nil {
		log.Error().Err(err).Msg("scenario configuration unusable")
		return 1
	}

	var prof *profile.Profile
	path := *profilePath
	if path == "" {
		candidate := filepath.Join(cfg.Pipeline.ProfileDir, *sourceID+".json")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		prof, err = profile.Load(path)
		if err != nil {
			log.Error().Err(err).Str("kind", pipeline.KindOf(err)).Str("path", path).Msg("ingestion profile unusable")
			return 1
		}
	}

	store, closeStore, err := buildStore(cfg.Cache)
	if err != nil {
		log.Error().Err(err).Msg("cache store init failed")
		return 1
	}
	defer closeStore()

	p := &pipeline.Pipeline{
		Cache:   extract.NewCache(store, &extract.Extractor{EnableOCR: *ocr}),
		Config:  scenarios,
		Profile: prof,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sel, err := p.Run(ctx, pipeline.Params{
		SourceRef:          *sourceRef,
		SourceID:           *sourceID,
		Scenario:           *scenarioArg,
		Level:              *level,
		MaxCandidates:      cfg.Pipeline.MaxCandidates,
		WindowSizePages:    *windowSize,
		MinScenarioHits:    *minHits,
		MinQualified:       cfg.Pipeline.MinQualified,
		TopWindows:         cfg.Pipeline.TopWindows,
		FrontMatterMaxScan: cfg.Pipeline.FrontMatterMaxScan,
		EnableOCR:          *ocr,
		Fetch: fetch.Options{
			AccessKey: cfg.Fetch.AWSAccessKey,
			SecretKey: cfg.Fetch.AWSSecretKey,
			Region:    cfg.Fetch.AWSRegion,
			Password:  cfg.Fetch.Password,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("kind", pipeline.KindOf(err)).Msg("pipeline failed")
		return 1
	}

	data, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("encode selection")
		return 1
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Error().Err(err).Msg("write selection")
			return 1
		}
	} else {
		fmt.Println(string(data))
	}
	return 0
}

func buildStore(cfg cfgpkg.CacheConfig) (extract.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		rs, err := extract.NewRedisStore(cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return extract.NewFileStore(cfg.Dir), func() {}, nil
	}
}
