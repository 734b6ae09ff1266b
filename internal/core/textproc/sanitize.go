package textproc

import (
	"regexp"
	"strings"
)

var (
	// C0 controls except \t and \n, plus DEL and the C1 range.
	controlRe  = regexp.MustCompile("[\\x00-\\x08\\x0B\\x0C\\x0E-\\x1F\\x7F-\\x9F]")
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize removes control characters, normalizes line endings to LF,
// collapses runs of spaces/tabs to one space and runs of 3+ newlines to
// exactly two. Pure and idempotent.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return text
}
