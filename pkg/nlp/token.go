// Package nlp provides the text analysis used by the classifier: Unicode
// sentence segmentation, word tokenization and a rule based span ruler.
package nlp

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/surgebase/porter2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Token is one word, number or punctuation mark. Start and End are byte
// offsets into the text the token was cut from.
type Token struct {
	Text  string
	Lower string
	Norm  string
	Stem  string
	Start int
	End   int

	// SentenceStart is set on the first token of each sentence.
	SentenceStart bool
}

var contractionNorms = map[string]string{
	"n't": "not",
	"n’t": "not",
	"ca":  "can",
	"wo":  "will",
	"sha": "shall",
}

// Tokenize splits text into tokens along Unicode word boundaries.
// Whitespace is dropped, "cannot" is split into "can" and "not", and the
// clitics n't and 's are split from the word they attach to.
func Tokenize(text string) []Token {
	lowerCaser := cases.Lower(language.Und)
	var tokens []Token

	segments := words.FromString(text)
	offset := 0
	for segments.Next() {
		segment := segments.Value()
		start := offset
		offset += len(segment)

		if strings.TrimFunc(segment, unicode.IsSpace) == "" {
			continue
		}
		for _, piece := range splitClitics(segment) {
			tokens = append(tokens, newToken(lowerCaser, piece.text, start+piece.offset, piece.norm))
		}
	}

	if len(tokens) > 0 {
		tokens[0].SentenceStart = true
	}
	return tokens
}

func newToken(lowerCaser cases.Caser, text string, start int, norm string) Token {
	lower := lowerCaser.String(text)
	if norm == "" {
		norm = lower
	}
	return Token{
		Text:  text,
		Lower: lower,
		Norm:  norm,
		Stem:  stem(lower),
		Start: start,
		End:   start + len(text),
	}
}

func lowerString(text string) string {
	return cases.Lower(language.Und).String(text)
}

func stem(lower string) string {
	return porter2.Stem(lower)
}

type piece struct {
	text   string
	offset int
	norm   string
}

func splitClitics(segment string) []piece {
	if strings.EqualFold(segment, "cannot") {
		return []piece{
			{text: segment[:3], offset: 0},
			{text: segment[3:], offset: 3},
		}
	}

	for _, suffix := range []string{"n't", "n’t", "'s", "’s"} {
		if len(segment) <= len(suffix) {
			continue
		}
		split := len(segment) - len(suffix)
		head, tail := segment[:split], segment[split:]
		if strings.ToLower(tail) != suffix {
			continue
		}
		return []piece{
			{text: head, offset: 0, norm: contractionNorms[strings.ToLower(head)]},
			{text: tail, offset: split, norm: contractionNorms[strings.ToLower(tail)]},
		}
	}

	return []piece{{text: segment}}
}
