package catcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/db"
	"github.com/kailas-cloud/readdigest/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "category:"

// DefaultTTL keeps a cached category for a month.
const DefaultTTL = 30 * 24 * time.Hour

// Categorizer is the wrapped category provider.
type Categorizer interface {
	Categorize(ctx context.Context, keyword string) (string, error)
}

// store is the consumer interface for the category cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// CachedCategorizer caches keyword categories in a key-value store.
type CachedCategorizer struct {
	inner      Categorizer
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner Categorizer,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedCategorizer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCategorizer{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Categorize returns a cached category or asks the inner categorizer.
// Cache failures degrade to a direct call; inner errors are never cached.
func (c *CachedCategorizer) Categorize(ctx context.Context, keyword string) (string, error) {
	key := cacheKey(keyword)

	if category, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return category, nil
	}

	c.incCache("miss")

	category, err := c.inner.Categorize(ctx, keyword)
	if err != nil {
		return "", fmt.Errorf("categorize keyword: %w", err)
	}

	c.putToCache(ctx, key, category)
	return category, nil
}

func (c *CachedCategorizer) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey folds case so "Cat" and "cat" share an entry, matching extraction.
func cacheKey(keyword string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(keyword))))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedCategorizer) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached category", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *CachedCategorizer) putToCache(ctx context.Context, key, category string) {
	if category == "" {
		return
	}
	if err := c.store.Set(ctx, key, []byte(category)); err != nil {
		c.logger.Warn("Failed to cache category", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Expire(ctx, key, c.ttl, false); err != nil {
		c.logger.Warn("Failed to set category TTL", zap.String("key", key), zap.Error(err))
	}
}
