package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps cache entries in Redis so parallel workers share one
// extraction cache. Same contract as FileStore: no locking, last writer
// wins.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis at redisURL. Entries expire after ttl;
// ttl <= 0 means no expiry.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: c, ttl: ttl}, nil
}

func (s *RedisStore) key(sourceID, key string) string {
	return fmt.Sprintf("extract:%s:%s", sourceID, key)
}

// Load reads a cache entry; corrupt payloads and version mismatches are a
// miss.
func (s *RedisStore) Load(ctx context.Context, sourceID, key string) (*CachedExtraction, bool, error) {
	data, err := s.client.Get(ctx, s.key(sourceID, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry CachedExtraction
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("source", sourceID).Str("key", key).Msg("corrupt cache entry, treating as miss")
		return nil, false, nil
	}
	if entry.ExtractionVersion != Version {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Save writes an entry, overwriting silently.
func (s *RedisStore) Save(ctx context.Context, sourceID, key string, entry *CachedExtraction) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sourceID, key), data, s.ttl).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
