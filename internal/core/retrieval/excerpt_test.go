package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knova-io/knova/internal/models"
)

func TestExtractExcerpts(t *testing.T) {
	t.Run("short content passes through", func(t *testing.T) {
		in := []models.SearchResult{{Content: "short text with keyword"}}
		out := ExtractExcerpts(in, []string{"keyword"}, 0.7)
		assert.Equal(t, "short text with keyword", out[0].Content)
	})

	t.Run("oversized content is cut to keyword windows", func(t *testing.T) {
		content := strings.Repeat("x", 2000) + " refund appears here " + strings.Repeat("y", 2000)
		in := []models.SearchResult{{Content: content}}
		out := ExtractExcerpts(in, []string{"refund"}, 0.7)
		require.Less(t, len(out[0].Content), len(content))
		assert.Contains(t, out[0].Content, "refund")
		assert.True(t, strings.HasPrefix(out[0].Content, "..."))
		assert.True(t, strings.HasSuffix(out[0].Content, "..."))
	})

	t.Run("no keyword occurrence keeps the original", func(t *testing.T) {
		content := strings.Repeat("z", 3000)
		in := []models.SearchResult{{Content: content}}
		out := ExtractExcerpts(in, []string{"refund"}, 0.7)
		assert.Equal(t, content, out[0].Content)
	})

	t.Run("excerpt not meaningfully shorter keeps the original", func(t *testing.T) {
		// keyword everywhere: merged windows cover nearly the whole text
		content := strings.Repeat("refund ", 300)
		in := []models.SearchResult{{Content: content}}
		out := ExtractExcerpts(in, []string{"refund"}, 0.7)
		assert.Equal(t, content, out[0].Content)
	})

	t.Run("overlapping windows are merged without duplication", func(t *testing.T) {
		content := strings.Repeat("a", 2000) + " alpha beta " + strings.Repeat("b", 2000)
		in := []models.SearchResult{{Content: content}}
		out := ExtractExcerpts(in, []string{"alpha", "beta"}, 0.7)
		assert.Equal(t, 1, strings.Count(out[0].Content, "alpha"))
		assert.Equal(t, 1, strings.Count(out[0].Content, "beta"))
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		content := strings.Repeat("x", 2000) + " Refund policy " + strings.Repeat("y", 2000)
		in := []models.SearchResult{{Content: content}}
		out := ExtractExcerpts(in, []string{"refund"}, 0.7)
		assert.Contains(t, out[0].Content, "Refund")
		assert.Less(t, len(out[0].Content), len(content))
	})

	t.Run("multibyte content never splits a rune", func(t *testing.T) {
		content := strings.Repeat("日本語テキスト", 300) + " keyword " + strings.Repeat("日本語テキスト", 300)
		in := []models.SearchResult{{Content: content}}
		out := ExtractExcerpts(in, []string{"keyword"}, 0.7)
		assert.True(t, strings.Contains(out[0].Content, "keyword"))
		assert.True(t, len(out[0].Content) < len(content))
		assert.True(t, utf8.ValidString(out[0].Content))
	})
}
