package retrieval

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/knova-io/knova/internal/models"
)

const (
	// excerptThreshold is the content length above which excerpting kicks in.
	excerptThreshold = 1500
	// excerptWindow is the context kept on each side of a keyword hit.
	excerptWindow = 200
)

type span struct {
	start, end int
}

// ExtractExcerpts shortens oversized results to windows of context around the
// query keywords. The original content is kept when no keyword occurs in it
// or when the excerpt would not be meaningfully shorter.
func ExtractExcerpts(results []models.SearchResult, keywords []string, keepRatio float64) []models.SearchResult {
	if keepRatio <= 0 || keepRatio > 1 {
		keepRatio = 0.7
	}
	for i := range results {
		if len(results[i].Content) <= excerptThreshold {
			continue
		}
		if excerpt, ok := buildExcerpt(results[i].Content, keywords, keepRatio); ok {
			results[i].Content = excerpt
		}
	}
	return results
}

func buildExcerpt(content string, keywords []string, keepRatio float64) (string, bool) {
	lower := strings.ToLower(content)

	var spans []span
	for _, kw := range keywords {
		if utf8.RuneCountInString(kw) < 2 {
			continue
		}
		for from := 0; ; {
			idx := strings.Index(lower[from:], kw)
			if idx < 0 {
				break
			}
			hit := from + idx
			spans = append(spans, span{
				start: snapRuneStart(content, maxInt(0, hit-excerptWindow)),
				end:   snapRuneEnd(content, minInt(len(content), hit+len(kw)+excerptWindow)),
			})
			from = hit + len(kw)
		}
	}
	if len(spans) == 0 {
		return "", false
	}

	merged := mergeSpans(spans)

	var b strings.Builder
	for i, s := range merged {
		if i > 0 || s.start > 0 {
			b.WriteString("... ")
		}
		b.WriteString(strings.TrimSpace(content[s.start:s.end]))
		b.WriteString(" ")
	}
	if merged[len(merged)-1].end < len(content) {
		b.WriteString("...")
	}

	excerpt := strings.TrimSpace(b.String())
	if float64(len(excerpt)) >= keepRatio*float64(len(content)) {
		return "", false
	}
	return excerpt, true
}

// mergeSpans sorts by start offset and coalesces overlapping or touching
// windows into one.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// snapRuneStart moves a byte offset forward to the start of a rune.
func snapRuneStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// snapRuneEnd moves a byte offset back to a rune boundary.
func snapRuneEnd(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
