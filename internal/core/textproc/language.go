package textproc

import (
	"math"
	"regexp"
	"strings"
)

// Languages whose scripts carry no reliable word boundaries. Chunks in these
// languages get a larger overlap so phrase fragments survive chunk edges.
var rareOverlapLanguages = map[string]bool{
	"km": true, // Khmer
	"lo": true, // Lao
	"my": true, // Burmese
	"mn": true, // Mongolian
}

// OverlapFor returns the chunk overlap (in words) for a language and chunk size.
// Rare-script languages: max(ceil(size*0.2), 100). Everything else:
// max(ceil(size*0.1), 50).
func OverlapFor(language string, chunkSize int) int {
	if rareOverlapLanguages[language] {
		return maxInt(int(math.Ceil(float64(chunkSize)*0.2)), 100)
	}
	return maxInt(int(math.Ceil(float64(chunkSize)*0.1)), 50)
}

var multiSpaceRe = regexp.MustCompile(` {2,}`)

// Preprocess applies script-specific normalization before chunking.
// Idempotent: re-running on processed text changes nothing further.
func Preprocess(text, language string) string {
	switch language {
	case "km":
		return preprocessKhmer(text)
	case "mn":
		return preprocessMongolian(text)
	default:
		return text
	}
}

// Khmer consonants U+1780..U+17A2, dependent vowels U+17B6..U+17C5.
func isKhmerConsonant(r rune) bool      { return r >= 0x1780 && r <= 0x17A2 }
func isKhmerDependentVowel(r rune) bool { return r >= 0x17B6 && r <= 0x17C5 }

// preprocessKhmer inserts a space at every dependent-vowel to consonant
// boundary so the word-budgeted chunker sees syllable units.
func preprocessKhmer(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for i, r := range runes {
		b.WriteRune(r)
		if isKhmerDependentVowel(r) && i+1 < len(runes) && isKhmerConsonant(runes[i+1]) {
			b.WriteByte(' ')
		}
	}
	return multiSpaceRe.ReplaceAllString(b.String(), " ")
}

// preprocessMongolian replaces narrow/no-break space code points with plain
// spaces and strips the Mongolian vowel separator.
func preprocessMongolian(text string) string {
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "᠎", "")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
