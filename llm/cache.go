package llm

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss indicates cache miss.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry represents a cached generation.
type CacheEntry struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	HitCount  int       `json:"hit_count"`
}

// CacheConfig configures the two cache levels.
type CacheConfig struct {
	LocalMaxSize int           `json:"local_max_size" yaml:"local_max_size"`
	LocalTTL     time.Duration `json:"local_ttl" yaml:"local_ttl"`
	RedisTTL     time.Duration `json:"redis_ttl" yaml:"redis_ttl"`
	EnableLocal  bool          `json:"enable_local" yaml:"enable_local"`
	EnableRedis  bool          `json:"enable_redis" yaml:"enable_redis"`
}

// DefaultCacheConfig returns sensible defaults.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		LocalMaxSize: 1000,
		LocalTTL:     5 * time.Minute,
		RedisTTL:     1 * time.Hour,
		EnableLocal:  true,
		EnableRedis:  true,
	}
}

// CachedGenerator wraps a Generator with a local LRU plus optional Redis L2.
// Low-temperature calls with identical requests (validator passes, repeated
// playtests over the same content) hit the cache instead of the provider.
type CachedGenerator struct {
	inner  Generator
	local  *lruCache
	redis  *redis.Client
	config *CacheConfig
	logger *zap.Logger

	onHit  func()
	onMiss func()
}

// NewCachedGenerator creates the caching wrapper. rdb may be nil to disable
// the Redis level regardless of config.
func NewCachedGenerator(inner Generator, rdb *redis.Client, config *CacheConfig, logger *zap.Logger) *CachedGenerator {
	if config == nil {
		config = DefaultCacheConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var local *lruCache
	if config.EnableLocal {
		local = newLRUCache(config.LocalMaxSize, config.LocalTTL)
	}

	return &CachedGenerator{
		inner:  inner,
		local:  local,
		redis:  rdb,
		config: config,
		logger: logger.With(zap.String("component", "cached_generator")),
	}
}

// SetCallbacks installs optional hit/miss observers (used for metrics).
func (g *CachedGenerator) SetCallbacks(onHit, onMiss func()) {
	g.onHit = onHit
	g.onMiss = onMiss
}

// Generate implements Generator.
func (g *CachedGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	key := CacheKey(req)

	if entry, err := g.get(ctx, key); err == nil {
		if g.onHit != nil {
			g.onHit()
		}
		return entry.Text, nil
	}
	if g.onMiss != nil {
		g.onMiss()
	}

	text, err := g.inner.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	if err := g.set(ctx, key, &CacheEntry{Text: text}); err != nil {
		g.logger.Debug("cache store failed", zap.Error(err))
	}
	return text, nil
}

func (g *CachedGenerator) get(ctx context.Context, key string) (*CacheEntry, error) {
	if g.local != nil {
		if entry, ok := g.local.Get(key); ok {
			return entry, nil
		}
	}

	if g.config.EnableRedis && g.redis != nil {
		data, err := g.redis.Get(ctx, redisKey(key)).Bytes()
		if err == nil {
			var entry CacheEntry
			if err := json.Unmarshal(data, &entry); err == nil {
				if g.local != nil {
					g.local.Set(key, &entry)
				}
				return &entry, nil
			}
		}
	}

	return nil, ErrCacheMiss
}

func (g *CachedGenerator) set(ctx context.Context, key string, entry *CacheEntry) error {
	entry.CreatedAt = time.Now()
	entry.ExpiresAt = entry.CreatedAt.Add(g.config.RedisTTL)

	if g.local != nil {
		g.local.Set(key, entry)
	}

	if g.config.EnableRedis && g.redis != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return g.redis.Set(ctx, redisKey(key), data, g.config.RedisTTL).Err()
	}
	return nil
}

// CacheKey derives a stable key from the full request payload.
func CacheKey(req *Request) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func redisKey(key string) string { return "questhive:gen:" + key }

// lruCache is a small TTL-aware LRU for the local cache level.
type lruCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
}

type lruItem struct {
	key     string
	entry   *CacheEntry
	savedAt time.Time
}

func newLRUCache(maxSize int, ttl time.Duration) *lruCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &lruCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *lruCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*lruItem)
	if c.ttl > 0 && time.Since(item.savedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	item.entry.HitCount++
	return item.entry, true
}

func (c *lruCache) Set(key string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruItem).entry = entry
		el.Value.(*lruItem).savedAt = time.Now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&lruItem{key: key, entry: entry, savedAt: time.Now()})
	c.items[key] = el

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruItem).key)
	}
}
