package roles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCatalogTTL = 15 * time.Minute

// RedisStore shares the catalog cache across gateway instances. Entries
// expire after the configured TTL so role changes propagate without a
// restart.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore builds a catalog store on top of an existing client.
func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "finadmin:role-catalog"
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context) (Catalog, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var catalog Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		// A corrupt cache entry behaves like a miss.
		_ = s.rdb.Del(ctx, s.key).Err()
		return nil, false, nil
	}
	return catalog, true, nil
}

func (s *RedisStore) Set(ctx context.Context, c Catalog) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, raw, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
