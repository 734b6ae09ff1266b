package tables

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/logger"
)

// Texts above this size are restructured segment by segment.
const segmentCeiling = 8000

const restructurePrompt = `The text below contains tabular data whose layout was flattened during extraction. Rewrite every table as a well-formed markdown table. Keep all non-tabular text unchanged and in its original order. Return only the rewritten text.`

// Restructurer reformats flattened tables in extracted text into markdown
// via the LLM. Every segment call fails open to its own raw input.
type Restructurer struct {
	llm core.LLMProvider
}

func NewRestructurer(llm core.LLMProvider) *Restructurer {
	return &Restructurer{llm: llm}
}

// Restructure splits oversized text at paragraph (then line) boundaries
// nearest the ceiling and restructures each segment independently.
func (r *Restructurer) Restructure(ctx context.Context, text string) string {
	if len(text) <= segmentCeiling {
		return r.restructureSegment(ctx, text)
	}

	segments := splitSegments(text, segmentCeiling)
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = r.restructureSegment(ctx, seg)
	}
	return strings.Join(parts, "\n\n")
}

func (r *Restructurer) restructureSegment(ctx context.Context, segment string) string {
	out, err := r.llm.Generate(ctx, restructurePrompt, segment)
	if err != nil || strings.TrimSpace(out) == "" {
		logger.Warn("table restructure failed, keeping raw segment", zap.Error(err))
		return segment
	}
	return out
}

// splitSegments cuts text into pieces no longer than ceiling bytes, cutting
// at the paragraph break nearest the ceiling, then a line break, then a rune
// boundary as the last resort.
func splitSegments(text string, ceiling int) []string {
	var segments []string
	for len(text) > ceiling {
		window := text[:ceiling]
		cut := strings.LastIndex(window, "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(window, "\n")
		}
		if cut <= 0 {
			cut = ceiling
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		segments = append(segments, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if strings.TrimSpace(text) != "" {
		segments = append(segments, text)
	}
	return segments
}
