package settings

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/logger"
	"github.com/knova-io/knova/internal/models"
)

// DefaultTTL bounds the staleness window for settings changes.
const DefaultTTL = 60 * time.Second

type entry struct {
	settings models.RagSettings
	expires  time.Time
}

// Cache is a process-local, TTL-bounded read-through cache of per-collection
// RAG settings. Constructed once at startup and injected into the retrieval
// engine and ingestion orchestrator; each worker process holds its own.
type Cache struct {
	db  core.DbClient
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

func NewCache(db core.DbClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		db:      db,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the collection's settings, reading through to storage on a
// miss or expiry. A missing collection row yields the documented defaults;
// a read error falls back to defaults without caching them.
func (c *Cache) Get(ctx context.Context, collectionID string) models.RagSettings {
	c.mu.RLock()
	e, ok := c.entries[collectionID]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expires) {
		return e.settings
	}

	s, err := c.db.GetCollectionSettings(ctx, collectionID)
	if err != nil {
		logger.Warn("settings read failed, using defaults uncached",
			zap.String("collection", collectionID), zap.Error(err))
		return models.DefaultRagSettings()
	}

	resolved := models.DefaultRagSettings()
	if s != nil {
		resolved = normalize(*s)
	}

	c.mu.Lock()
	c.entries[collectionID] = entry{settings: resolved, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return resolved
}

// Invalidate drops the cached entry so the next Get re-reads storage.
func (c *Cache) Invalidate(collectionID string) {
	c.mu.Lock()
	delete(c.entries, collectionID)
	c.mu.Unlock()
}

// normalize fills zero values with the documented defaults.
func normalize(s models.RagSettings) models.RagSettings {
	d := models.DefaultRagSettings()
	if s.EmbeddingModel == "" {
		s.EmbeddingModel = d.EmbeddingModel
	}
	if s.TopK <= 0 {
		s.TopK = d.TopK
	}
	if s.MatchThreshold <= 0 {
		s.MatchThreshold = d.MatchThreshold
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = d.ChunkSize
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	return s
}
