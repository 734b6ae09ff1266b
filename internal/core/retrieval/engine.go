package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/core/settings"
	"github.com/knova-io/knova/internal/logger"
	"github.com/knova-io/knova/internal/models"
)

// Options are per-query overrides. Zero values fall back to the collection's
// settings (topK, threshold, language) or the engine defaults.
type Options struct {
	TopK      int
	Threshold float64
	Language  string

	// ReservedKeywordSlots is how many merged slots keyword-only hits are
	// guaranteed near the front of the ranking. Defaults to 2.
	ReservedKeywordSlots int
	// ExcerptKeepRatio: an excerpt replaces the full content only when it is
	// shorter than this fraction of the original. Defaults to 0.7.
	ExcerptKeepRatio float64
}

const (
	defaultReservedKeywordSlots = 2
	defaultExcerptKeepRatio     = 0.7

	keywordBaseScore     = 0.3
	keywordSpecificBoost = 0.25
	keywordAnyBoost      = 0.05
)

// Engine runs hybrid retrieval: vector similarity plus lexical keyword
// search, merged with reserved slots for keyword-only hits.
type Engine struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	rewriter *Rewriter
	settings *settings.Cache
}

func NewEngine(db core.DbClient, embedder core.EmbeddingProvider, rewriter *Rewriter, cache *settings.Cache) *Engine {
	return &Engine{
		db:       db,
		embedder: embedder,
		rewriter: rewriter,
		settings: cache,
	}
}

// Search retrieves the best-matching chunks for a query within a collection.
// A vector RPC failure degrades to keyword-only results; an empty result set
// is a valid outcome, not an error.
func (e *Engine) Search(ctx context.Context, query, collectionID string, opts Options) ([]models.SearchResult, error) {
	cfg := e.settings.Get(ctx, collectionID)
	topK := cfg.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	threshold := cfg.MatchThreshold
	if opts.Threshold > 0 {
		threshold = opts.Threshold
	}
	language := cfg.Language
	if opts.Language != "" {
		language = opts.Language
	}
	reserved := opts.ReservedKeywordSlots
	if reserved <= 0 {
		reserved = defaultReservedKeywordSlots
	}
	keepRatio := opts.ExcerptKeepRatio
	if keepRatio <= 0 {
		keepRatio = defaultExcerptKeepRatio
	}

	rewritten := e.rewriter.Rewrite(ctx, query, language, cfg.HydeEnabled)

	vectorResults := e.vectorSearch(ctx, rewritten, collectionID, topK, threshold)

	keywords := ExtractKeywords(rewritten, language)
	allTokens := Tokenize(rewritten)
	keywordResults := e.keywordSearch(ctx, collectionID, keywords, allTokens, topK)

	merged := mergeResults(vectorResults, keywordResults, topK, reserved)
	merged = ExtractExcerpts(merged, keywords, keepRatio)
	return merged, nil
}

func (e *Engine) vectorSearch(ctx context.Context, query, collectionID string, topK int, threshold float64) []models.SearchResult {
	embeddings, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		logger.Warn("query embedding failed, continuing keyword-only",
			zap.String("collection", collectionID), zap.Error(err))
		return nil
	}

	results, err := e.db.MatchChunks(ctx, embeddings[0], topK, collectionID, threshold)
	if err != nil {
		logger.Warn("vector search failed, continuing keyword-only",
			zap.String("collection", collectionID), zap.Error(err))
		return nil
	}
	return results
}

// keywordSearch runs the lexical side: an AND query first, topped up from an
// OR query when the AND pass leaves slots unfilled. Hits are scored by how
// many keywords they match and deduplicated per source file.
func (e *Engine) keywordSearch(ctx context.Context, collectionID string, keywords, allTokens []string, topK int) []models.SearchResult {
	if len(keywords) < 2 {
		return nil
	}

	hits, err := e.db.KeywordMatchAll(ctx, collectionID, keywords, topK)
	if err != nil {
		logger.Warn("keyword AND search failed", zap.Error(err))
		hits = nil
	}

	if len(hits) < topK {
		orHits, err := e.db.KeywordMatchAny(ctx, collectionID, keywords, 4*topK)
		if err != nil {
			logger.Warn("keyword OR search failed", zap.Error(err))
		} else {
			seen := make(map[string]bool, len(hits))
			for _, h := range hits {
				seen[h.ID] = true
			}
			for _, h := range orHits {
				if !seen[h.ID] {
					seen[h.ID] = true
					hits = append(hits, h)
				}
			}
		}
	}

	for i := range hits {
		hits[i].Similarity = scoreKeywordHit(hits[i].Content, keywords, allTokens)
	}
	sortByScore(hits)
	return dedupeByFile(hits)
}

// scoreKeywordHit rewards coverage of the meaningful keywords far more than
// coverage of the query's incidental tokens.
func scoreKeywordHit(content string, keywords, allTokens []string) float64 {
	lower := strings.ToLower(content)
	score := keywordBaseScore
	if n := len(keywords); n > 0 {
		score += coverage(lower, keywords) / float64(n) * keywordSpecificBoost
	}
	if n := len(allTokens); n > 0 {
		score += coverage(lower, allTokens) / float64(n) * keywordAnyBoost
	}
	return score
}

func coverage(lower string, terms []string) float64 {
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return float64(matched)
}

func sortByScore(results []models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
}

// dedupeByFile keeps the highest-scoring hit per source file so one document
// cannot flood the keyword list. Assumes results are sorted descending.
func dedupeByFile(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		key := r.Metadata.SourceFileName
		if key == "" {
			key = fmt.Sprintf("id:%s", r.ID)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// mergeResults interleaves the two ranked lists. Vector hits are primary;
// keyword-only hits get reserved slots near the front so exact-term matches
// are not crowded out by near-duplicate semantic hits.
func mergeResults(vector, keyword []models.SearchResult, topK, reserved int) []models.SearchResult {
	inVector := make(map[string]bool, len(vector))
	for _, v := range vector {
		inVector[v.ID] = true
	}
	var kwOnly []models.SearchResult
	for _, k := range keyword {
		if !inVector[k.ID] {
			kwOnly = append(kwOnly, k)
		}
	}

	r := minInt(reserved, len(kwOnly))
	vectorSlots := minInt(len(vector), maxInt(0, topK-r))

	merged := make([]models.SearchResult, 0, topK)
	merged = append(merged, vector[:vectorSlots]...)
	merged = append(merged, kwOnly[:r]...)
	merged = append(merged, vector[vectorSlots:]...)
	merged = append(merged, kwOnly[r:]...)

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
