package nlp

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// Sentence is a trimmed sentence with its byte offsets in the source text.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// SplitSentences segments text along Unicode sentence boundaries. Leading
// and trailing whitespace is trimmed from each sentence and empty sentences
// are dropped.
func SplitSentences(text string) []Sentence {
	var result []Sentence

	segments := sentences.FromString(text)
	offset := 0
	for segments.Next() {
		segment := segments.Value()
		start := offset
		offset += len(segment)

		leftTrimmed := strings.TrimLeftFunc(segment, unicode.IsSpace)
		trimmed := strings.TrimRightFunc(leftTrimmed, unicode.IsSpace)
		if trimmed == "" {
			continue
		}

		sentenceStart := start + len(segment) - len(leftTrimmed)
		result = append(result, Sentence{
			Text:  trimmed,
			Start: sentenceStart,
			End:   sentenceStart + len(trimmed),
		})
	}
	return result
}
