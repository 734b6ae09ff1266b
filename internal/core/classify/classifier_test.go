package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	response string
	err      error
	lastUser string
}

func (f *fakeLLM) Generate(_ context.Context, _, userPrompt string) (string, error) {
	f.lastUser = userPrompt
	return f.response, f.err
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a clean JSON answer", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{response: `{"language": "km", "docType": "table_heavy"}`})
		res := c.Classify(ctx, "some text")
		assert.Equal(t, Result{Language: "km", DocType: DocTypeTableHeavy}, res)
	})

	t.Run("strips markdown fences and chatter", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{response: "Sure! ```json\n{\"language\": \"ko\", \"docType\": \"legal\"}\n```"})
		res := c.Classify(ctx, "text")
		assert.Equal(t, Result{Language: "ko", DocType: DocTypeLegal}, res)
	})

	t.Run("LLM error falls back to defaults", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{err: errors.New("rate limited")})
		assert.Equal(t, Result{Language: "en", DocType: DocTypeGeneral}, c.Classify(ctx, "text"))
	})

	t.Run("malformed JSON falls back to defaults", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{response: "the language is english"})
		assert.Equal(t, Result{Language: "en", DocType: DocTypeGeneral}, c.Classify(ctx, "text"))
	})

	t.Run("unknown docType is normalized to general", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{response: `{"language": "fr", "docType": "novel"}`})
		res := c.Classify(ctx, "text")
		assert.Equal(t, "fr", res.Language)
		assert.Equal(t, DocTypeGeneral, res.DocType)
	})

	t.Run("missing language defaults to en", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{response: `{"docType": "qa"}`})
		res := c.Classify(ctx, "text")
		assert.Equal(t, "en", res.Language)
		assert.Equal(t, DocTypeQA, res.DocType)
	})

	t.Run("long documents are truncated before the call", func(t *testing.T) {
		llm := &fakeLLM{response: `{"language": "en", "docType": "general"}`}
		c := NewClassifier(llm)
		c.Classify(ctx, strings.Repeat("x", 10_000))
		assert.Len(t, []rune(llm.lastUser), classifyPrefixRunes)
	})
}
