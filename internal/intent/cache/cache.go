// Package cache memoizes synthesizer outputs keyed by a normalized content
// hash of (message, recent context, caller metadata). The cache is an
// optimization, never a correctness dependency: a failing backend degrades
// to always calling the synthesizer, and staleness is bounded by TTL only.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ordergate/internal/conversation"
	"ordergate/internal/intent"
)

const (
	// Cache keys live under the ai: namespace.
	keyPrefix = "ai:"

	// keyContextTurns is how many trailing turns feed the key: identical
	// text means different things in different conversational states.
	keyContextTurns = 3

	// DefaultTTL bounds the accepted staleness window.
	DefaultTTL = time.Hour

	// lruCapacity bounds the in-process layer. Sized for one instance's hot
	// set, not the whole keyspace.
	lruCapacity = 256
)

// Cache is a two-layer intent cache: a bounded in-process LRU in front of an
// optional shared Redis backend. The LRU is owned by this instance and passed
// by handle, never ambient global state.
type Cache struct {
	redis  *redis.Client
	lru    *lruCache
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New constructs a Cache. client may be nil; the cache then runs on the
// in-process LRU alone.
func New(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{
		redis: client,
		lru:   newLRUCache(lruCapacity),
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the content hash for a message in its conversational state.
// Metadata keys are sorted so map iteration order can't split the keyspace.
func Key(message string, history []conversation.Turn, metadata map[string]string) string {
	h := sha256.New()
	fmt.Fprintf(h, "msg:%s\n", strings.ToLower(strings.TrimSpace(message)))
	fmt.Fprintf(h, "turns:%d\n", len(history))

	start := 0
	if len(history) > keyContextTurns {
		start = len(history) - keyContextTurns
	}
	for _, turn := range history[start:] {
		fmt.Fprintf(h, "ctx:%s:%s\n", turn.Role, turn.Content)
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "meta:%s=%s\n", k, metadata[k])
	}

	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached intent for the key, or nil on miss. Backend errors
// are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, key string) *intent.StructuredIntent {
	if cached, ok := c.lru.get(key); ok {
		return cached
	}

	if c.redis == nil {
		return nil
	}
	raw, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.WarnContext(ctx, "intent cache read failed, treating as miss", "error", err)
		}
		return nil
	}

	var si intent.StructuredIntent
	if err := json.Unmarshal([]byte(raw), &si); err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "intent cache entry corrupt, treating as miss", "error", err)
		}
		return nil
	}

	c.lru.put(key, &si, c.ttl)
	return &si
}

// Put stores the intent under the key in both layers. Backend errors are
// logged and swallowed.
func (c *Cache) Put(ctx context.Context, key string, si *intent.StructuredIntent) {
	c.lru.put(key, si, c.ttl)

	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(si)
	if err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "intent cache marshal failed", "error", err)
		}
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "intent cache write failed, continuing", "error", err)
	}
}
