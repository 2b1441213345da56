package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/packext/internal/metrics"
)

func readFile(path string) ([]byte, error) { return os.ReadFile(path) }

// CachedExtraction is the persisted form of one extraction run. One entry
// per (source id, cache key).
type CachedExtraction struct {
	CacheKey          string     `json:"cache_key"`
	SourceID          string     `json:"source_id"`
	SourcePath        string     `json:"source_path"`
	ExtractedAt       time.Time  `json:"extracted_at"`
	ExtractionVersion string     `json:"extraction_version"`
	Pages             []PageText `json:"pages"`
	PageCount         int        `json:"page_count"`
	TotalChars        int        `json:"total_chars"`
	AvgCharsPerPage   float64    `json:"avg_chars_per_page"`
}

// CacheKey derives the cache key for a document: the first 16 hex chars of
// SHA-256 over the file bytes, a dash, and the first 8 hex chars of SHA-256
// over the extraction version string.
func CacheKey(fileBytes []byte, version string) string {
	content := sha256.Sum256(fileBytes)
	ver := sha256.Sum256([]byte(version))
	return hex.EncodeToString(content[:])[:16] + "-" + hex.EncodeToString(ver[:])[:8]
}

// ContentHash returns the full SHA-256 of the document bytes, hex encoded.
// The deterministic selector derives its seed from it.
func ContentHash(fileBytes []byte) string {
	sum := sha256.Sum256(fileBytes)
	return hex.EncodeToString(sum[:])
}

// Store persists cache entries. Load returns (nil, false, nil) on a miss; a
// version mismatch or a corrupt entry is a miss, never an error. Save
// overwrites silently: concurrent writers race with last-writer-wins, which
// is an accepted limitation (entries for the same key are byte-equivalent).
type Store interface {
	Load(ctx context.Context, sourceID, key string) (*CachedExtraction, bool, error)
	Save(ctx context.Context, sourceID, key string, entry *CachedExtraction) error
}

// PageExtractor is the expensive operation the cache elides.
type PageExtractor interface {
	Extract(path string) (*Result, error)
}

// Cache wraps an extractor with content-addressed persistence.
type Cache struct {
	Store     Store
	Extractor PageExtractor
	Version   string
}

// NewCache builds a cache around extractor using store.
func NewCache(store Store, extractor PageExtractor) *Cache {
	return &Cache{Store: store, Extractor: extractor, Version: Version}
}

// ExtractAndCache returns the pages for the document at path, reusing a
// cached entry when the content and extraction version match. Safe to call
// repeatedly with identical inputs; both the miss and hit path observe the
// same output. The returned bool reports a cache hit.
func (c *Cache) ExtractAndCache(ctx context.Context, sourceID, path string) (*Result, *CachedExtraction, bool, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, false, err
	}
	key := CacheKey(data, c.Version)

	if entry, ok, err := c.Store.Load(ctx, sourceID, key); err != nil {
		// cache-state anomalies are a soft miss
		log.Warn().Err(err).Str("source", sourceID).Str("key", key).Msg("cache load failed, re-extracting")
	} else if ok {
		metrics.CacheOp("hit")
		log.Debug().Str("source", sourceID).Str("key", key).Msg("extraction cache hit")
		return &Result{
			Pages:           entry.Pages,
			Method:          MethodText,
			PageCount:       entry.PageCount,
			TotalChars:      entry.TotalChars,
			AvgCharsPerPage: entry.AvgCharsPerPage,
		}, entry, true, nil
	}

	metrics.CacheOp("miss")
	res, err := c.Extractor.Extract(path)
	if err != nil {
		return nil, nil, false, err
	}

	entry := &CachedExtraction{
		CacheKey:          key,
		SourceID:          sourceID,
		SourcePath:        path,
		ExtractedAt:       time.Now().UTC(),
		ExtractionVersion: c.Version,
		Pages:             res.Pages,
		PageCount:         res.PageCount,
		TotalChars:        res.TotalChars,
		AvgCharsPerPage:   res.AvgCharsPerPage,
	}
	if err := c.Store.Save(ctx, sourceID, key, entry); err != nil {
		// losing the cache write costs a re-extraction next run, nothing else
		log.Warn().Err(err).Str("source", sourceID).Str("key", key).Msg("cache save failed")
	} else {
		metrics.CacheOp("save")
	}
	return res, entry, false, nil
}
