package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTexts(tokens []Token) []string {
	texts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		texts = append(texts, token.Text)
	}
	return texts
}

func TestTokenize(t *testing.T) {
	text := "No person shall park here."
	tokens := Tokenize(text)

	assert.Equal(t, []string{"No", "person", "shall", "park", "here", "."}, tokenTexts(tokens))
	for _, token := range tokens {
		assert.Equal(t, token.Text, text[token.Start:token.End])
	}
	assert.True(t, tokens[0].SentenceStart)
	assert.False(t, tokens[1].SentenceStart)
	assert.Equal(t, "no", tokens[0].Lower)
}

func TestTokenizeClitics(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  []string
		norms []string
	}{
		{"cannot", "cannot", []string{"can", "not"}, []string{"can", "not"}},
		{"capitalised cannot", "Cannot", []string{"Can", "not"}, []string{"can", "not"}},
		{"don't", "don't", []string{"do", "n't"}, []string{"do", "not"}},
		{"can't", "can't", []string{"ca", "n't"}, []string{"can", "not"}},
		{"won't", "won't", []string{"wo", "n't"}, []string{"will", "not"}},
		{"possessive", "agency's", []string{"agency", "'s"}, []string{"agency", "'s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.text)
			require.Equal(t, tt.want, tokenTexts(tokens))
			norms := make([]string, 0, len(tokens))
			for _, token := range tokens {
				norms = append(norms, token.Norm)
				assert.Equal(t, token.Text, tt.text[token.Start:token.End])
			}
			assert.Equal(t, tt.norms, norms)
		})
	}
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   \n\t"))
}

func TestSplitSentences(t *testing.T) {
	text := "  No person shall park here. This is informational.  "
	sentences := SplitSentences(text)

	require.Len(t, sentences, 2)
	assert.Equal(t, "No person shall park here.", sentences[0].Text)
	assert.Equal(t, "This is informational.", sentences[1].Text)
	for _, sentence := range sentences {
		assert.Equal(t, sentence.Text, text[sentence.Start:sentence.End])
	}
	assert.Equal(t, 2, sentences[0].Start)
}

func TestSplitSentencesEmpty(t *testing.T) {
	assert.Empty(t, SplitSentences(""))
	assert.Empty(t, SplitSentences("   "))
}

func TestTokenAttributes(t *testing.T) {
	token := func(text string) Token { return Token{Text: text} }

	assert.True(t, token("Scope").IsTitle())
	assert.False(t, token("USA").IsTitle())
	assert.True(t, token("USA").IsUpper())
	assert.False(t, token("Usa").IsUpper())
	assert.True(t, token("park").IsLower())
	assert.False(t, token("52").IsLower())
	assert.True(t, token("park").IsAlpha())
	assert.False(t, token("p4rk").IsAlpha())
	assert.True(t, token("2024").IsDigit())
	assert.True(t, token(".").IsPunct())
	assert.False(t, token("§").IsASCII())
	assert.True(t, token("(").IsBracket())
	assert.True(t, token("“").IsQuote())
	assert.Equal(t, 3, token("día").Length())

	for _, numeric := range []string{"30", "1,000", "2.5", "-4", "1/2", "3rd", "third", "Twenty"} {
		assert.True(t, token(numeric).LikeNum(), numeric)
	}
	for _, word := range []string{"park", "", "a1", "."} {
		assert.False(t, token(word).LikeNum(), word)
	}

	assert.Equal(t, "Xxxxx", token("Regulation").Shape())
	assert.Equal(t, "dd.ddd", token("52.204").Shape())
	assert.Equal(t, "X.X.X.", token("C.F.R.").Shape())

	assert.Equal(t, "R", token("Regulation").Prefix())
	assert.Equal(t, "ion", token("Regulation").Suffix())
	assert.Equal(t, "of", token("of").Suffix())
}
