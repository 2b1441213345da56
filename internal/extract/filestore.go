package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileStore keeps one JSON document per cache key under
// <dir>/<sourceID>/<key>.json. It performs no locking.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (s *FileStore) path(sourceID, key string) string {
	return filepath.Join(s.Dir, sourceID, key+".json")
}

// Load reads a cache entry. Not found, corrupt JSON and version mismatch are
// all reported as a plain miss.
func (s *FileStore) Load(_ context.Context, sourceID, key string) (*CachedExtraction, bool, error) {
	data, err := os.ReadFile(s.path(sourceID, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var entry CachedExtraction
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("source", sourceID).Str("key", key).Msg("corrupt cache entry, treating as miss")
		return nil, false, nil
	}
	if entry.ExtractionVersion != Version {
		log.Debug().Str("have", entry.ExtractionVersion).Str("want", Version).Msg("cache version mismatch, treating as miss")
		return nil, false, nil
	}
	return &entry, true, nil
}

// Save writes an entry, creating parent directories as needed. An existing
// entry is overwritten silently.
func (s *FileStore) Save(_ context.Context, sourceID, key string, entry *CachedExtraction) error {
	p := s.path(sourceID, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
