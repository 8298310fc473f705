// Package cache keeps the resolved auth scope of recently seen users so the
// auth middleware does not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bgfactura/invoicing/internal/logging"
)

// Scope is what the auth middleware needs to authorise a request.
type Scope struct {
	UserID    int64  `json:"userId"`
	CompanyID int64  `json:"companyId,omitempty"`
	Email     string `json:"email"`
}

// HasCompany reports whether the user owns a company.
func (s Scope) HasCompany() bool { return s.CompanyID > 0 }

// ScopeCache stores scopes keyed by user id. Implementations treat backend
// failures as misses.
type ScopeCache interface {
	Get(ctx context.Context, userID int64) (Scope, bool)
	Set(ctx context.Context, scope Scope)
	Invalidate(ctx context.Context, userID int64)
}

// RedisScopeCache stores scopes as JSON strings with a TTL.
type RedisScopeCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *logging.Logger
}

var _ ScopeCache = (*RedisScopeCache)(nil)

// NewRedis parses a redis:// URL and returns a cache backed by it.
func NewRedis(url string, ttl time.Duration, log *logging.Logger) (*RedisScopeCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisWithClient(redis.NewClient(opts), ttl, log), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration, log *logging.Logger) *RedisScopeCache {
	if log == nil {
		log = logging.NewDefault("scope-cache")
	}
	return &RedisScopeCache{client: client, ttl: ttl, prefix: "invoicer:scope:", log: log}
}

func (c *RedisScopeCache) key(userID int64) string {
	return fmt.Sprintf("%s%d", c.prefix, userID)
}

func (c *RedisScopeCache) Get(ctx context.Context, userID int64) (Scope, bool) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err == redis.Nil {
		return Scope{}, false
	}
	if err != nil {
		c.log.WithError(err).WithField("user_id", userID).Warn("scope cache read failed")
		return Scope{}, false
	}
	var scope Scope
	if err := json.Unmarshal(raw, &scope); err != nil {
		c.log.WithError(err).WithField("user_id", userID).Warn("scope cache entry corrupt")
		return Scope{}, false
	}
	return scope, true
}

func (c *RedisScopeCache) Set(ctx context.Context, scope Scope) {
	raw, err := json.Marshal(scope)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(scope.UserID), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("user_id", scope.UserID).Warn("scope cache write failed")
	}
}

func (c *RedisScopeCache) Invalidate(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		c.log.WithError(err).WithField("user_id", userID).Warn("scope cache delete failed")
	}
}

// Ping checks connectivity.
func (c *RedisScopeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *RedisScopeCache) Close() error {
	return c.client.Close()
}

// MemoryScopeCache is the in-process fallback used when no Redis URL is set.
type MemoryScopeCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	scope   Scope
	expires time.Time
}

var _ ScopeCache = (*MemoryScopeCache)(nil)

// NewMemory returns an in-process cache with the given TTL.
func NewMemory(ttl time.Duration) *MemoryScopeCache {
	return &MemoryScopeCache{ttl: ttl, entries: make(map[int64]memoryEntry), now: time.Now}
}

func (c *MemoryScopeCache) Get(_ context.Context, userID int64) (Scope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return Scope{}, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, userID)
		return Scope{}, false
	}
	return entry.scope, true
}

func (c *MemoryScopeCache) Set(_ context.Context, scope Scope) {
	c.mu.Lock()
	c.entries[scope.UserID] = memoryEntry{scope: scope, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryScopeCache) Invalidate(_ context.Context, userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
