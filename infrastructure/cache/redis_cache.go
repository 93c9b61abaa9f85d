package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"filing-backend/application/ports"
	apperrors "filing-backend/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisScanCount = 256

// RedisCache implements ports.Cache on top of Redis. Expiry uses native
// Redis TTLs so no sweep is needed. The caller owns the client.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// RedisOption customises a RedisCache.
type RedisOption func(*RedisCache)

// WithPrefix namespaces every key so several caches can share one database.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		if prefix != "" && !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		c.prefix = prefix
	}
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, logger *zap.Logger, opts ...RedisOption) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &RedisCache{client: client, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get retrieves a value. redis.Nil is a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewCacheError("get", err)
	}
	return val, true, nil
}

// Set stores a value; ttl <= 0 stores it without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return apperrors.NewCacheError("set", err)
	}
	return nil
}

// Delete removes a single key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return apperrors.NewCacheError("delete", err)
	}
	return nil
}

// DeletePattern removes keys matching pattern. SCAN narrows candidates with
// an escaped glob and the compiled pattern makes the final decision, so
// keys holding glob metacharacters are never over-matched.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	compiled, err := CompilePattern(pattern)
	if err != nil {
		return err
	}

	if compiled.Literal() {
		return c.Delete(ctx, compiled.Prefix())
	}

	match := c.key(escapeGlob(compiled.Prefix())) + "*" + escapeGlob(compiled.Suffix())
	deleted, err := c.scanDelete(ctx, match, func(stripped string) bool {
		return compiled.Match(stripped)
	})
	if err != nil {
		return apperrors.NewCacheError("delete_pattern", err)
	}

	c.logger.Debug("Deleted cache entries by pattern",
		zap.String("pattern", pattern),
		zap.Int("count", deleted),
	)
	return nil
}

// Clear removes every key under this cache's prefix. Without a prefix it
// removes every key in the selected database.
func (c *RedisCache) Clear(ctx context.Context) error {
	if _, err := c.scanDelete(ctx, escapeGlob(c.prefix)+"*", nil); err != nil {
		return apperrors.NewCacheError("clear", err)
	}
	return nil
}

// Has reports whether key exists.
func (c *RedisCache) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, apperrors.NewCacheError("has", err)
	}
	return n > 0, nil
}

// Ping checks connectivity, used by the health endpoint.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) scanDelete(ctx context.Context, match string, keep func(string) bool) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, redisScanCount).Result()
		if err != nil {
			return deleted, err
		}

		batch := keys[:0]
		for _, k := range keys {
			if !strings.HasPrefix(k, c.prefix) {
				continue
			}
			if keep == nil || keep(strings.TrimPrefix(k, c.prefix)) {
				batch = append(batch, k)
			}
		}
		if len(batch) > 0 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(batch)
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var _ ports.Cache = (*RedisCache)(nil)
