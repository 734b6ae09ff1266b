package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/logger"
)

const hydeSystemPrompt = `You write short hypothetical passages for semantic search.
Given a user question, write a plausible 2-4 sentence passage that would answer it.
Write the passage in the requested language. Output only the passage, nothing else.`

const translateSystemPrompt = `You translate search queries.
Translate the user's query into the requested language.
Keep proper nouns, product names and numbers unchanged.
Output only the translated query, nothing else.`

// Rewriter prepares a query for embedding. Depending on collection settings
// it either generates a hypothetical answer in the pivot language, translates
// the query into the pivot language, or passes the query through untouched.
type Rewriter struct {
	llm core.LLMProvider
}

func NewRewriter(llm core.LLMProvider) *Rewriter {
	return &Rewriter{llm: llm}
}

// Rewrite returns the text that should be embedded for the query. Both LLM
// paths fall back to the raw query on failure; rewriting never blocks search.
func (r *Rewriter) Rewrite(ctx context.Context, query, pivotLanguage string, hydeEnabled bool) string {
	if pivotLanguage == "" {
		pivotLanguage = "en"
	}
	if queryLanguage(query) == pivotLanguage {
		return query
	}

	var system, user string
	if hydeEnabled {
		system = hydeSystemPrompt
		user = fmt.Sprintf("Language: %s\nQuestion: %s", pivotLanguage, query)
	} else {
		system = translateSystemPrompt
		user = fmt.Sprintf("Target language: %s\nQuery: %s", pivotLanguage, query)
	}

	out, err := r.llm.Generate(ctx, system, user)
	if err != nil {
		logger.Warn("query rewrite failed, using raw query",
			zap.Bool("hyde", hydeEnabled), zap.Error(err))
		return query
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return query
	}
	return out
}
