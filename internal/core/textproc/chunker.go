package textproc

import (
	"strings"
)

// TextChunk is one bounded slice of a document's text. StartChar/EndChar are
// best-effort offsets from the paragraph walk; after overlap splicing they
// are approximate metadata, not exact spans.
type TextChunk struct {
	Content   string
	Index     int
	StartChar int
	EndChar   int
}

// ChunkOptions tunes the paragraph-aware splitter. Budgets are in words.
type ChunkOptions struct {
	ChunkSize    int    // target words per chunk (default 500)
	ChunkOverlap int    // words carried over between consecutive chunks
	Separator    string // paragraph separator (default "\n\n")
}

const defaultChunkSize = 500

// Chunk splits text into word-budgeted, paragraph-aware chunks. Paragraphs
// are accumulated greedily; when the next paragraph would push the buffer
// past ChunkSize words the chunk is closed and the next one is seeded with
// the last ChunkOverlap words. Any chunk still exceeding 1.5x ChunkSize is
// re-split into fixed word windows with sub-indices parent*100+sub.
func Chunk(text string, opts ChunkOptions) []TextChunk {
	size := opts.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	sep := opts.Separator
	if sep == "" {
		sep = "\n\n"
	}

	text = Sanitize(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	paras := splitParagraphs(text, sep)
	chunks := accumulate(paras, sep, size, overlap)
	return splitOversized(chunks, size, overlap)
}

type paragraph struct {
	text  string
	start int
}

func splitParagraphs(text, sep string) []paragraph {
	var out []paragraph
	offset := 0
	for _, part := range strings.Split(text, sep) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			lead := strings.Index(part, trimmed)
			if lead < 0 {
				lead = 0
			}
			out = append(out, paragraph{text: trimmed, start: offset + lead})
		}
		offset += len(part) + len(sep)
	}
	return out
}

func accumulate(paras []paragraph, sep string, size, overlap int) []TextChunk {
	var (
		out      []TextChunk
		cur      string
		curStart int
		idx      int
	)

	closeChunk := func() TextChunk {
		content := strings.TrimSpace(cur)
		ch := TextChunk{Content: content, Index: idx, StartChar: curStart, EndChar: curStart + len(content)}
		idx++
		return ch
	}

	for _, p := range paras {
		if cur == "" {
			cur = p.text
			curStart = p.start
			continue
		}
		if wordCount(cur)+wordCount(p.text) > size {
			closed := closeChunk()
			out = append(out, closed)

			tail := lastWords(closed.Content, overlap)
			if tail != "" {
				cur = tail + sep + p.text
				curStart = maxInt(p.start-len(tail)-len(sep), closed.StartChar)
			} else {
				cur = p.text
				curStart = p.start
			}
		} else {
			cur += sep + p.text
		}
	}
	if strings.TrimSpace(cur) != "" {
		out = append(out, closeChunk())
	}
	return out
}

// splitOversized breaks chunks above 1.5x the budget into fixed word windows
// advancing by size-overlap words, with sub-indices parent*100+sub.
func splitOversized(chunks []TextChunk, size, overlap int) []TextChunk {
	var out []TextChunk
	for _, ch := range chunks {
		words := strings.Fields(ch.Content)
		if len(words) <= size+size/2 {
			out = append(out, ch)
			continue
		}
		step := size - overlap
		if step <= 0 {
			step = size
		}
		sub := 0
		for start := 0; start < len(words); start += step {
			end := minInt(start+size, len(words))
			content := strings.Join(words[start:end], " ")
			out = append(out, TextChunk{
				Content:   content,
				Index:     ch.Index*100 + sub,
				StartChar: ch.StartChar,
				EndChar:   ch.StartChar + len(content),
			})
			sub++
			if end == len(words) {
				break
			}
		}
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// lastWords returns the final n whitespace-delimited words of s.
func lastWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
