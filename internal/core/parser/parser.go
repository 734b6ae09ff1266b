package parser

import (
	"errors"
	"strings"

	"github.com/knova-io/knova/internal/core/textproc"
)

// Fatal parse errors. Each one fails the owning document's ingestion.
var (
	ErrCrawlBlocked    = errors.New("crawl blocked by bot protection")
	ErrEmptyDocument   = errors.New("no extractable text in document")
	ErrUnsupportedType = errors.New("unsupported document type")
)

// cleanup funnels every extraction path through the same normalization:
// sanitize, trim each line, drop empty lines, collapse blank-line runs.
func cleanup(text string) string {
	text = textproc.Sanitize(text)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
