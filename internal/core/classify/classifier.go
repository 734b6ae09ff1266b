package classify

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/logger"
)

// Structural document types.
const (
	DocTypeGeneral    = "general"
	DocTypeTableHeavy = "table_heavy"
	DocTypeQA         = "qa"
	DocTypeLegal      = "legal"
	DocTypeAcademic   = "academic"
)

var validDocTypes = map[string]bool{
	DocTypeGeneral:    true,
	DocTypeTableHeavy: true,
	DocTypeQA:         true,
	DocTypeLegal:      true,
	DocTypeAcademic:   true,
}

// Result is the classifier's answer. DocType table_heavy signals that the
// table restructurer should run on this document.
type Result struct {
	Language string `json:"language"`
	DocType  string `json:"docType"`
}

const classifyPrefixRunes = 3000

const classifyPrompt = `You classify documents. Respond with only a JSON object of the form {"language": "<ISO 639-1 code>", "docType": "<one of: general, table_heavy, qa, legal, academic>"}. Pick table_heavy when a significant share of the content is tabular. No prose, no markdown fences.`

// Classifier labels a document's language and structural type with one LLM
// call. It never fails: any call or parse error yields {en, general}.
type Classifier struct {
	llm core.LLMProvider
}

func NewClassifier(llm core.LLMProvider) *Classifier {
	return &Classifier{llm: llm}
}

func defaults() Result {
	return Result{Language: "en", DocType: DocTypeGeneral}
}

func (c *Classifier) Classify(ctx context.Context, text string) Result {
	sample := text
	if runes := []rune(sample); len(runes) > classifyPrefixRunes {
		sample = string(runes[:classifyPrefixRunes])
	}

	raw, err := c.llm.Generate(ctx, classifyPrompt, sample)
	if err != nil {
		logger.Warn("classification failed, using defaults", zap.Error(err))
		return defaults()
	}

	var res Result
	if err := json.Unmarshal([]byte(extractJSON(raw)), &res); err != nil {
		logger.Warn("classification returned malformed JSON, using defaults", zap.Error(err))
		return defaults()
	}

	res.Language = strings.ToLower(strings.TrimSpace(res.Language))
	if res.Language == "" {
		res.Language = "en"
	}
	if !validDocTypes[res.DocType] {
		res.DocType = DocTypeGeneral
	}
	return res
}

// extractJSON pulls the outermost JSON object out of a possibly fenced or
// chatty LLM response.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
