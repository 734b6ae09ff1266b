package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/logger"
)

// Vision-mode reformatting is only attempted below this extracted-text size;
// larger documents keep the raw text layer.
const visionTextCeiling = 30_000

const tableReformatPrompt = `The following text was extracted from a PDF and may contain tables that lost their structure. Rewrite any tabular data as well-formed markdown tables. Keep all non-tabular text exactly as it is. Return only the rewritten document.`

// ParsePDF extracts the text layer from PDF bytes via docconv.
// Scanned-image PDFs with no text layer yield ErrEmptyDocument.
func ParsePDF(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return "", fmt.Errorf("pdf extract: %w", err)
	}
	text := cleanup(res.Body)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// ParsePDFWithVision extracts the text layer and, when the result is small
// enough, asks the LLM to restore embedded tables as markdown. Any LLM
// failure falls back to the raw extracted text.
func ParsePDFWithVision(ctx context.Context, data []byte, llm core.LLMProvider) (string, error) {
	text, err := ParsePDF(data)
	if err != nil {
		return "", err
	}
	if len(text) > visionTextCeiling {
		logger.Debug("vision reformat skipped, text over ceiling", zap.Int("chars", len(text)))
		return text, nil
	}

	out, err := llm.Generate(ctx, tableReformatPrompt, text)
	if err != nil || strings.TrimSpace(out) == "" {
		logger.Warn("vision reformat failed, keeping raw text", zap.Error(err))
		return text, nil
	}
	return cleanup(out), nil
}
