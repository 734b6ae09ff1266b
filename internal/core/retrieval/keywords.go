package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stop-words and generic filler terms per supported language. Tokens in
// these sets carry no lexical signal and are dropped before keyword search.
var stopWords = map[string]map[string]bool{
	"en": toSet("a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
		"do", "does", "did", "have", "has", "had", "will", "would", "can", "could",
		"shall", "should", "may", "might", "must", "of", "in", "on", "at", "to",
		"for", "from", "by", "with", "about", "into", "over", "after", "before",
		"and", "or", "but", "not", "no", "so", "if", "then", "than", "that", "this",
		"these", "those", "it", "its", "as", "what", "which", "who", "whom", "how",
		"when", "where", "why", "you", "your", "i", "we", "they", "he", "she", "me"),
	"km": toSet("នៅ", "ជា", "និង", "ដែល", "បាន", "ក្នុង", "របស់", "គឺ", "ទេ", "អ្វី"),
	"ko": toSet("그리고", "하지만", "그런데", "또는", "무엇", "어떻게", "있는", "있다", "합니다"),
}

// Filler terms common to question phrasing in any language; matching these
// would flood keyword search with irrelevant rows.
var genericFillers = toSet(
	"information", "details", "explain", "describe", "tell", "please", "know",
	"mean", "meaning", "want", "need", "help", "question", "answer", "show",
)

// Trailing case-particle suffixes stripped from tokens, per language.
var particleSuffixes = map[string][]string{
	"ko": {"은", "는", "이", "가", "을", "를", "에게", "에서", "의", "에", "로", "으로", "와", "과", "도", "만"},
	"ja": {"は", "が", "を", "に", "で", "と", "へ", "の", "も", "から", "まで"},
}

// Tokenize splits a query into lowercased tokens with surrounding
// punctuation removed. Tokens shorter than two runes are dropped.
func Tokenize(query string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if utf8.RuneCountInString(tok) >= 2 {
			out = append(out, tok)
		}
	}
	return out
}

// ExtractKeywords returns the meaningful search keywords of a query: tokens
// minus stop-words, generic fillers and trailing case particles, deduplicated
// in order of first appearance.
func ExtractKeywords(query, language string) []string {
	stops := stopWords[language]
	english := stopWords["en"]

	var out []string
	seen := make(map[string]bool)
	for _, tok := range Tokenize(query) {
		tok = stripParticle(tok, language)
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if stops[tok] || english[tok] || genericFillers[tok] {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func stripParticle(tok, language string) string {
	for _, suffix := range particleSuffixes[language] {
		if trimmed := strings.TrimSuffix(tok, suffix); trimmed != tok && utf8.RuneCountInString(trimmed) >= 2 {
			return trimmed
		}
	}
	return tok
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// queryLanguage guesses a query's language from its dominant script. Good
// enough to decide whether the query already matches the pivot language.
func queryLanguage(query string) string {
	counts := map[string]int{}
	total := 0
	for _, r := range query {
		var script string
		switch {
		case r >= 0x1780 && r <= 0x17FF:
			script = "km"
		case r >= 0x0E80 && r <= 0x0EFF:
			script = "lo"
		case r >= 0x1000 && r <= 0x109F:
			script = "my"
		case r >= 0x1800 && r <= 0x18AF:
			script = "mn"
		case r >= 0xAC00 && r <= 0xD7AF || r >= 0x1100 && r <= 0x11FF:
			script = "ko"
		case r >= 0x3040 && r <= 0x30FF:
			script = "ja"
		case r >= 0x4E00 && r <= 0x9FFF:
			script = "zh"
		case r >= 0x0E00 && r <= 0x0E7F:
			script = "th"
		case r >= 0x0400 && r <= 0x04FF:
			script = "ru"
		case r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z':
			script = "en"
		default:
			continue
		}
		counts[script]++
		total++
	}
	if total == 0 {
		return "en"
	}
	best, bestN := "en", 0
	for s, n := range counts {
		if n > bestN {
			best, bestN = s, n
		}
	}
	return best
}
