package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = "| Name | Price |\n|------|-------|\n| Widget | 10 |\n| Gadget | 25 |\n"

type fakeLLM struct {
	mu    sync.Mutex
	calls []string
	fn    func(userPrompt string) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, _, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, userPrompt)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(userPrompt)
	}
	return "summary of: " + userPrompt[:10], nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestTableScanner(t *testing.T) {
	t.Run("finds markdown tables", func(t *testing.T) {
		text := "intro\n\n" + sampleTable + "\noutro"
		blocks := regexScanner{}.Scan(text)
		require.Len(t, blocks, 1)
		assert.Contains(t, blocks[0], "| Widget | 10 |")
	})

	t.Run("ignores pipe characters outside table structure", func(t *testing.T) {
		assert.Empty(t, regexScanner{}.Scan("a | b | c with no separator row"))
	})

	t.Run("finds multiple tables", func(t *testing.T) {
		text := sampleTable + "\nbetween\n\n" + sampleTable
		assert.Len(t, regexScanner{}.Scan(text), 2)
	})
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("no tables means no summaries and no LLM calls", func(t *testing.T) {
		llm := &fakeLLM{}
		s := NewSummarizer(llm)
		assert.Empty(t, s.Summarize(ctx, "plain prose with no tables"))
		assert.Equal(t, 0, llm.callCount())
	})

	t.Run("summaries get synthetic indices above the offset", func(t *testing.T) {
		llm := &fakeLLM{}
		s := NewSummarizer(llm)
		text := sampleTable + "\nx\n\n" + sampleTable
		out := s.Summarize(ctx, text)
		require.Len(t, out, 2)
		assert.Equal(t, SyntheticIndexOffset, out[0].ChunkIndex)
		assert.Equal(t, SyntheticIndexOffset+1, out[1].ChunkIndex)
	})

	t.Run("a failed table is dropped without failing the rest", func(t *testing.T) {
		llm := &fakeLLM{fn: func(user string) (string, error) {
			if strings.Contains(user, "Gadget") {
				return "", errors.New("boom")
			}
			return "fine", nil
		}}
		s := NewSummarizer(llm)
		other := "| Col |\n|-----|\n| Val |\n"
		out := s.Summarize(ctx, sampleTable+"\nx\n\n"+other)
		require.Len(t, out, 1)
		assert.Equal(t, "fine", out[0].Content)
		// index reflects the table's position, not its rank among survivors
		assert.Equal(t, SyntheticIndexOffset+1, out[0].ChunkIndex)
	})

	t.Run("caps the number of summarized tables", func(t *testing.T) {
		llm := &fakeLLM{}
		s := NewSummarizer(llm)
		var b strings.Builder
		for i := 0; i < 15; i++ {
			fmt.Fprintf(&b, "| T%d |\n|-----|\n| v |\n\nprose\n\n", i)
		}
		out := s.Summarize(ctx, b.String())
		assert.Len(t, out, maxTablesPerDocument)
		assert.Equal(t, maxTablesPerDocument, llm.callCount())
	})

	t.Run("blank summaries are dropped", func(t *testing.T) {
		llm := &fakeLLM{fn: func(string) (string, error) { return "   ", nil }}
		s := NewSummarizer(llm)
		assert.Empty(t, s.Summarize(ctx, sampleTable))
	})
}
