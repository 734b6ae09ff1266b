package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knova-io/knova/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	res := []models.SearchResult{
		{Content: "Refunds take 14 days.", Metadata: models.ChunkMetadata{SourceFileName: "policy.pdf"}},
		{Content: "Contact support for exceptions."},
	}

	t.Run("includes name, language, instructions and numbered context", func(t *testing.T) {
		p := BuildPrompt("Knova", "Be brief.", "en", res)
		assert.Contains(t, p, "You are Knova")
		assert.Contains(t, p, "Answer in en.")
		assert.Contains(t, p, "Be brief.")
		assert.Contains(t, p, "[1] (source: policy.pdf)")
		assert.Contains(t, p, "[2] (source: unknown)")
		assert.Contains(t, p, "Refunds take 14 days.")
	})

	t.Run("empty results say so instead of fabricating context", func(t *testing.T) {
		p := BuildPrompt("", "", "", nil)
		assert.Contains(t, p, "You are Assistant")
		assert.Contains(t, p, "No context was found")
		assert.NotContains(t, p, "[1]")
	})
}
