package tables

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/logger"
)

const (
	// At most this many tables are summarized per document.
	maxTablesPerDocument = 10
	// LLM calls per parallel batch; a batch must finish before the next starts.
	summaryBatchWidth = 3
	// Synthetic chunks start here so they never collide with pipeline chunk
	// indices (which top out at parentIndex*100+sub).
	SyntheticIndexOffset = 100000
)

const summaryPrompt = `Convert every row of the markdown table below into natural-language sentences. Mention the column names so each value keeps its meaning. Be complete but concise; stay under 300 words.`

// markdown table block: header row, separator row, one or more data rows.
var tableBlockRe = regexp.MustCompile(`(?m)^\|[^\n]*\|[ \t]*\n\|[ \t:|-]+\|[ \t]*\n(?:\|[^\n]*\|[ \t]*\n?)+`)

// TableScanner finds markdown table blocks in text. The regex scanner is the
// default; the interface exists so a real tokenizer can replace it without
// touching callers.
type TableScanner interface {
	Scan(text string) []string
}

type regexScanner struct{}

func (regexScanner) Scan(text string) []string {
	return tableBlockRe.FindAllString(text, -1)
}

// Summary is a natural-language rendering of one table, stored as an
// independently retrievable synthetic chunk.
type Summary struct {
	Content    string
	ChunkIndex int
}

// Summarizer turns markdown tables into natural-language synthetic chunks.
type Summarizer struct {
	llm     core.LLMProvider
	scanner TableScanner
}

func NewSummarizer(llm core.LLMProvider) *Summarizer {
	return &Summarizer{llm: llm, scanner: regexScanner{}}
}

// Summarize scans text for markdown tables and summarizes them with the LLM
// in parallel batches of summaryBatchWidth. A failed table summary is
// dropped, never retried; summarization as a whole cannot fail ingestion.
func (s *Summarizer) Summarize(ctx context.Context, text string) []Summary {
	tables := s.scanner.Scan(text)
	if len(tables) == 0 {
		return nil
	}
	if len(tables) > maxTablesPerDocument {
		logger.Debug("capping table summaries", zap.Int("found", len(tables)), zap.Int("cap", maxTablesPerDocument))
		tables = tables[:maxTablesPerDocument]
	}

	contents := make([]string, len(tables))
	for start := 0; start < len(tables); start += summaryBatchWidth {
		end := start + summaryBatchWidth
		if end > len(tables) {
			end = len(tables)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				out, err := s.llm.Generate(gctx, summaryPrompt, tables[i])
				if err != nil || strings.TrimSpace(out) == "" {
					logger.Warn("table summary dropped", zap.Int("table", i), zap.Error(err))
					return nil
				}
				contents[i] = strings.TrimSpace(out)
				return nil
			})
		}
		_ = g.Wait()
	}

	var out []Summary
	for i, c := range contents {
		if c == "" {
			continue
		}
		out = append(out, Summary{Content: c, ChunkIndex: SyntheticIndexOffset + i})
	}
	return out
}
