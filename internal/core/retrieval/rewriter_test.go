package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeLLM) Generate(_ context.Context, _, userPrompt string) (string, error) {
	f.calls++
	f.lastUser = userPrompt
	return f.response, f.err
}

func TestRewrite(t *testing.T) {
	ctx := context.Background()

	t.Run("query already in pivot language passes through with no LLM call", func(t *testing.T) {
		llm := &fakeLLM{response: "should not be used"}
		r := NewRewriter(llm)
		out := r.Rewrite(ctx, "what is the refund policy", "en", true)
		assert.Equal(t, "what is the refund policy", out)
		assert.Zero(t, llm.calls)
	})

	t.Run("hyde generates a hypothetical answer for foreign queries", func(t *testing.T) {
		llm := &fakeLLM{response: "Refunds are issued within 14 days of purchase."}
		r := NewRewriter(llm)
		out := r.Rewrite(ctx, "환불 정책이 뭐예요", "en", true)
		assert.Equal(t, "Refunds are issued within 14 days of purchase.", out)
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("hyde disabled translates instead", func(t *testing.T) {
		llm := &fakeLLM{response: "what is the refund policy"}
		r := NewRewriter(llm)
		out := r.Rewrite(ctx, "환불 정책이 뭐예요", "en", false)
		assert.Equal(t, "what is the refund policy", out)
		assert.Contains(t, llm.lastUser, "환불")
	})

	t.Run("LLM failure falls back to the raw query", func(t *testing.T) {
		llm := &fakeLLM{err: errors.New("timeout")}
		r := NewRewriter(llm)
		out := r.Rewrite(ctx, "환불 정책이 뭐예요", "en", true)
		assert.Equal(t, "환불 정책이 뭐예요", out)
	})

	t.Run("blank LLM output falls back to the raw query", func(t *testing.T) {
		llm := &fakeLLM{response: "  \n"}
		r := NewRewriter(llm)
		out := r.Rewrite(ctx, "환불 정책이 뭐예요", "en", false)
		assert.Equal(t, "환불 정책이 뭐예요", out)
	})

	t.Run("empty pivot language defaults to en", func(t *testing.T) {
		llm := &fakeLLM{}
		r := NewRewriter(llm)
		out := r.Rewrite(ctx, "plain english query", "", true)
		assert.Equal(t, "plain english query", out)
		assert.Zero(t, llm.calls)
	})
}
