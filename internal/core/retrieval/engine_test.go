package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/core/settings"
	"github.com/knova-io/knova/internal/models"
)

type stubDB struct {
	core.DbClient

	matchFn  func() ([]models.SearchResult, error)
	allFn    func(keywords []string, limit int) ([]models.SearchResult, error)
	anyFn    func(keywords []string, limit int) ([]models.SearchResult, error)
	settings *models.RagSettings
}

func (s *stubDB) MatchChunks(context.Context, []float32, int, string, float64) ([]models.SearchResult, error) {
	if s.matchFn == nil {
		return nil, nil
	}
	return s.matchFn()
}

func (s *stubDB) KeywordMatchAll(_ context.Context, _ string, keywords []string, limit int) ([]models.SearchResult, error) {
	if s.allFn == nil {
		return nil, nil
	}
	return s.allFn(keywords, limit)
}

func (s *stubDB) KeywordMatchAny(_ context.Context, _ string, keywords []string, limit int) ([]models.SearchResult, error) {
	if s.anyFn == nil {
		return nil, nil
	}
	return s.anyFn(keywords, limit)
}

func (s *stubDB) GetCollectionSettings(context.Context, string) (*models.RagSettings, error) {
	return s.settings, nil
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func hit(id, file, content string, sim float64) models.SearchResult {
	return models.SearchResult{
		ID:         id,
		Content:    content,
		Similarity: sim,
		Metadata:   models.ChunkMetadata{SourceFileName: file},
	}
}

func newTestEngine(db *stubDB, emb core.EmbeddingProvider) *Engine {
	cache := settings.NewCache(db, settings.DefaultTTL)
	rewriter := NewRewriter(&fakeLLM{})
	return NewEngine(db, emb, rewriter, cache)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("vector results come back for a single-keyword query", func(t *testing.T) {
		db := &stubDB{
			matchFn: func() ([]models.SearchResult, error) {
				return []models.SearchResult{hit("v1", "a.pdf", "refunds", 0.9)}, nil
			},
			allFn: func([]string, int) ([]models.SearchResult, error) {
				t.Fatal("keyword search should be skipped with fewer than 2 keywords")
				return nil, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund", "col-1", Options{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "v1", results[0].ID)
	})

	t.Run("vector RPC failure degrades to keyword-only", func(t *testing.T) {
		db := &stubDB{
			matchFn: func() ([]models.SearchResult, error) {
				return nil, errors.New("rpc down")
			},
			allFn: func([]string, int) ([]models.SearchResult, error) {
				return []models.SearchResult{hit("k1", "a.pdf", "refund policy details", 0)}, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "k1", results[0].ID)
		assert.Greater(t, results[0].Similarity, 0.0)
	})

	t.Run("embedding failure also degrades to keyword-only", func(t *testing.T) {
		db := &stubDB{
			allFn: func([]string, int) ([]models.SearchResult, error) {
				return []models.SearchResult{hit("k1", "a.pdf", "refund policy", 0)}, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{err: errors.New("quota")})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{})
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("keyword-only hits get reserved slots near the front", func(t *testing.T) {
		db := &stubDB{
			matchFn: func() ([]models.SearchResult, error) {
				return []models.SearchResult{
					hit("v1", "a.pdf", "semantic one", 0.9),
					hit("v2", "b.pdf", "semantic two", 0.8),
					hit("v3", "c.pdf", "semantic three", 0.7),
					hit("v4", "d.pdf", "semantic four", 0.6),
				}, nil
			},
			allFn: func([]string, int) ([]models.SearchResult, error) {
				return []models.SearchResult{
					hit("k1", "e.pdf", "refund policy exact", 0),
					hit("k2", "f.pdf", "refund policy other", 0),
					hit("k3", "g.pdf", "refund mention", 0),
				}, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{TopK: 4})
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, "v1", results[0].ID)
		assert.Equal(t, "v2", results[1].ID)
		// last two slots reserved for keyword-only hits
		assert.ElementsMatch(t, []string{"k1", "k2"}, []string{results[2].ID, results[3].ID})
	})

	t.Run("keyword hits already found by vector search are not duplicated", func(t *testing.T) {
		db := &stubDB{
			matchFn: func() ([]models.SearchResult, error) {
				return []models.SearchResult{hit("x1", "a.pdf", "refund policy", 0.9)}, nil
			},
			allFn: func([]string, int) ([]models.SearchResult, error) {
				return []models.SearchResult{hit("x1", "a.pdf", "refund policy", 0)}, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{})
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("OR query tops up when AND finds too few", func(t *testing.T) {
		var orLimit int
		db := &stubDB{
			allFn: func(_ []string, limit int) ([]models.SearchResult, error) {
				return []models.SearchResult{hit("k1", "a.pdf", "refund policy", 0)}, nil
			},
			anyFn: func(_ []string, limit int) ([]models.SearchResult, error) {
				orLimit = limit
				return []models.SearchResult{
					hit("k1", "a.pdf", "refund policy", 0), // duplicate of AND hit
					hit("k2", "b.pdf", "refund only", 0),
				}, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{TopK: 4})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 16, orLimit, "OR limit should be 4x topK")
		// the AND hit matches both keywords and must outrank the OR hit
		assert.Equal(t, "k1", results[0].ID)
		assert.Equal(t, "k2", results[1].ID)
	})

	t.Run("keyword hits deduplicate per source file keeping the best", func(t *testing.T) {
		db := &stubDB{
			allFn: func([]string, int) ([]models.SearchResult, error) {
				return []models.SearchResult{
					hit("k1", "same.pdf", "refund", 0),
					hit("k2", "same.pdf", "refund policy", 0),
				}, nil
			},
		}
		eng := newTestEngine(db, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "k2", results[0].ID, "the hit matching more keywords should survive")
	})

	t.Run("no results anywhere is a valid empty outcome", func(t *testing.T) {
		eng := newTestEngine(&stubDB{}, &stubEmbedder{})
		results, err := eng.Search(ctx, "refund policy", "col-1", Options{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSortByScore(t *testing.T) {
	t.Run("orders descending and keeps tied hits stable", func(t *testing.T) {
		results := []models.SearchResult{
			hit("a", "", "", 0.4),
			hit("b", "", "", 0.6),
			hit("c", "", "", 0.6),
			hit("d", "", "", 0.9),
		}
		sortByScore(results)
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		assert.Equal(t, []string{"d", "b", "c", "a"}, ids)
	})
}

func TestMergeResults(t *testing.T) {
	vector := []models.SearchResult{
		hit("v1", "", "", 0.9), hit("v2", "", "", 0.8), hit("v3", "", "", 0.7),
	}
	keyword := []models.SearchResult{
		hit("k1", "", "", 0.5), hit("k2", "", "", 0.4), hit("k3", "", "", 0.35),
	}

	t.Run("reserved slots then remaining vector then remaining keyword", func(t *testing.T) {
		out := mergeResults(vector, keyword, 5, 2)
		ids := make([]string, len(out))
		for i, r := range out {
			ids[i] = r.ID
		}
		assert.Equal(t, []string{"v1", "v2", "v3", "k1", "k2"}, ids)
	})

	t.Run("fewer keyword hits than reserved slots", func(t *testing.T) {
		out := mergeResults(vector, keyword[:1], 4, 2)
		assert.Len(t, out, 4)
		assert.Equal(t, "k1", out[3].ID)
	})

	t.Run("no keyword hits", func(t *testing.T) {
		out := mergeResults(vector, nil, 4, 2)
		assert.Len(t, out, 3)
		assert.Equal(t, "v1", out[0].ID)
	})

	t.Run("no vector hits", func(t *testing.T) {
		out := mergeResults(nil, keyword, 2, 2)
		assert.Len(t, out, 2)
		assert.Equal(t, "k1", out[0].ID)
	})
}
