package retrieval

import (
	"fmt"
	"strings"

	"github.com/knova-io/knova/internal/models"
)

// BuildPrompt assembles the system prompt a chat completion uses to answer
// from retrieved context. Results are numbered so the model can cite them.
func BuildPrompt(name, customInstructions, language string, results []models.SearchResult) string {
	var b strings.Builder

	if name == "" {
		name = "Assistant"
	}
	fmt.Fprintf(&b, "You are %s, a helpful assistant that answers strictly from the provided context.\n", name)
	if language != "" {
		fmt.Fprintf(&b, "Answer in %s.\n", language)
	}
	if customInstructions != "" {
		b.WriteString(customInstructions)
		b.WriteString("\n")
	}
	b.WriteString("If the context does not contain the answer, say you do not know. Do not invent facts.\n")

	if len(results) == 0 {
		b.WriteString("\nNo context was found for this question.\n")
		return b.String()
	}

	b.WriteString("\nContext:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] (source: %s)\n%s\n", i+1, sourceLabel(r), r.Content)
	}
	return b.String()
}

func sourceLabel(r models.SearchResult) string {
	if r.Metadata.SourceFileName != "" {
		return r.Metadata.SourceFileName
	}
	return "unknown"
}
