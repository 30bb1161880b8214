package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"github.com/voyagen/runtv/internal/cache"
	"github.com/voyagen/runtv/internal/models"
)

// Cache TTLs for different entity types.
const (
	ttlSources  = 2 * time.Minute
	ttlSnapshot = 10 * time.Minute
)

// CachedStore wraps a Store with a Redis caching layer.
// Reads are served from cache when possible; writes invalidate the keys
// derived from the source they touch. Credentials never reach Redis: the
// cached listing holds the public form of each source (no password), and
// GetSourceByID, the one read that needs credentials, always goes to the
// inner store.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// Every key derived from one source lives under "source:{id}:".
func snapshotKey(id int64) string { return fmt.Sprintf("source:%d:snapshot", id) }

// --- cached read operations ---

func (c *CachedStore) ListSources(ctx context.Context) ([]models.Source, error) {
	const key = "sources:all"
	if v, err := cache.Get[[]models.Source](ctx, c.cache, key); err == nil {
		return v, nil
	}
	sources, err := c.inner.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	public := publicSources(sources)
	c.set(ctx, key, public, ttlSources)
	return public, nil
}

// GetSourceByID is not cached; the result carries the password.
func (c *CachedStore) GetSourceByID(ctx context.Context, sourceID int64) (*models.Source, error) {
	return c.inner.GetSourceByID(ctx, sourceID)
}

func (c *CachedStore) GetSnapshot(ctx context.Context, sourceID int64) (*models.IPTVData, error) {
	key := snapshotKey(sourceID)
	if v, err := cache.Get[models.IPTVData](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	data, err := c.inner.GetSnapshot(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, data, ttlSnapshot)
	return data, nil
}

// --- write operations with cache invalidation ---

func (c *CachedStore) CreateOrGetSource(ctx context.Context, src *models.Source) (int64, error) {
	id, err := c.inner.CreateOrGetSource(ctx, src)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, "sources:all")
	return id, nil
}

func (c *CachedStore) UpdateSource(ctx context.Context, sourceID int64, fields SourceUpdate) error {
	if err := c.inner.UpdateSource(ctx, sourceID, fields); err != nil {
		return err
	}
	c.invalidate(ctx, "sources:all")
	return nil
}

func (c *CachedStore) DeleteSource(ctx context.Context, sourceID int64) error {
	if err := c.inner.DeleteSource(ctx, sourceID); err != nil {
		return err
	}
	pattern := fmt.Sprintf("source:%d:*", sourceID)
	if err := cache.DelPattern(ctx, c.cache, pattern); err != nil {
		log.Printf("cache: del %s: %v", pattern, err)
	}
	c.invalidate(ctx, "sources:all")
	return nil
}

func (c *CachedStore) SaveSnapshot(ctx context.Context, sourceID int64, data *models.IPTVData) error {
	if err := c.inner.SaveSnapshot(ctx, sourceID, data); err != nil {
		return err
	}
	c.invalidate(ctx, snapshotKey(sourceID), "sources:all")
	return nil
}

// Close closes the inner store. The Redis client is owned by the caller.
func (c *CachedStore) Close() error {
	return c.inner.Close()
}

// --- helpers ---

// publicSources copies sources without their passwords. Listings served
// through the cache look the same whether Redis answered or not.
func publicSources(sources []models.Source) []models.Source {
	out := make([]models.Source, len(sources))
	for i, src := range sources {
		src.Password = ""
		out[i] = src
	}
	return out
}

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && !cache.IsMiss(err) {
		log.Printf("cache: del %v: %v", keys, err)
	}
}

// FilterHash produces a short deterministic hash for a ContentFilter so it
// can be used as part of a cache or ETag key.
func FilterHash(kind models.CategoryKind, f ContentFilter) string {
	f = f.normalized()
	raw := fmt.Sprintf("%s|%s|%s|%d|%d", kind, f.CategoryID, f.Search, f.Limit, f.Offset)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
