package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/models"
)

type stubDB struct {
	core.DbClient

	settings *models.RagSettings
	err      error
	calls    int
}

func (s *stubDB) GetCollectionSettings(context.Context, string) (*models.RagSettings, error) {
	s.calls++
	return s.settings, s.err
}

func TestCacheGet(t *testing.T) {
	ctx := context.Background()

	t.Run("reads through on first access and caches", func(t *testing.T) {
		db := &stubDB{settings: &models.RagSettings{TopK: 12, MatchThreshold: 0.3, ChunkSize: 400, Language: "km", EmbeddingModel: "m"}}
		c := NewCache(db, time.Minute)

		first := c.Get(ctx, "col-1")
		second := c.Get(ctx, "col-1")
		assert.Equal(t, 12, first.TopK)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, db.calls, "second read should hit the cache")
	})

	t.Run("missing collection yields defaults and caches them", func(t *testing.T) {
		db := &stubDB{}
		c := NewCache(db, time.Minute)

		got := c.Get(ctx, "col-missing")
		assert.Equal(t, models.DefaultRagSettings(), got)
		c.Get(ctx, "col-missing")
		assert.Equal(t, 1, db.calls)
	})

	t.Run("read error falls back to defaults without caching", func(t *testing.T) {
		db := &stubDB{err: errors.New("db down")}
		c := NewCache(db, time.Minute)

		got := c.Get(ctx, "col-1")
		assert.Equal(t, models.DefaultRagSettings(), got)
		c.Get(ctx, "col-1")
		assert.Equal(t, 2, db.calls, "errors must not be cached")
	})

	t.Run("zero values in stored settings are normalized", func(t *testing.T) {
		db := &stubDB{settings: &models.RagSettings{TopK: 3}}
		c := NewCache(db, time.Minute)

		got := c.Get(ctx, "col-1")
		d := models.DefaultRagSettings()
		assert.Equal(t, 3, got.TopK)
		assert.Equal(t, d.MatchThreshold, got.MatchThreshold)
		assert.Equal(t, d.ChunkSize, got.ChunkSize)
		assert.Equal(t, d.Language, got.Language)
	})

	t.Run("expired entries re-read storage", func(t *testing.T) {
		db := &stubDB{settings: &models.RagSettings{TopK: 5}}
		c := NewCache(db, time.Nanosecond)

		c.Get(ctx, "col-1")
		time.Sleep(time.Millisecond)
		c.Get(ctx, "col-1")
		assert.Equal(t, 2, db.calls)
	})

	t.Run("invalidate forces a fresh read", func(t *testing.T) {
		db := &stubDB{settings: &models.RagSettings{TopK: 5}}
		c := NewCache(db, time.Minute)

		c.Get(ctx, "col-1")
		c.Invalidate("col-1")
		c.Get(ctx, "col-1")
		assert.Equal(t, 2, db.calls)
	})

	t.Run("collections are cached independently", func(t *testing.T) {
		db := &stubDB{settings: &models.RagSettings{TopK: 5}}
		c := NewCache(db, time.Minute)

		c.Get(ctx, "col-1")
		c.Get(ctx, "col-2")
		assert.Equal(t, 2, db.calls)
	})
}
