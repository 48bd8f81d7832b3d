package nlp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/pattern"
)

var (
	// ErrInvalidText is returned for input that is not valid UTF-8.
	ErrInvalidText = errors.New("text is not valid UTF-8")

	// ErrEngineClosed is returned by an engine after Close.
	ErrEngineClosed = errors.New("nlp engine is closed")
)

// Options configure an Engine.
type Options struct {
	// PhraseMatcherAttr selects the token attribute phrase rules compare:
	// ORTH (the default), TEXT, LOWER, NORM or LEMMA.
	PhraseMatcherAttr string

	Logger *zap.Logger
}

// Doc is an analyzed text.
type Doc struct {
	Text      string
	Sentences []Sentence
}

// Span is one rule match. Start and End are byte offsets into the text the
// span was found in; StartToken and EndToken delimit the matched tokens.
type Span struct {
	Label      string
	ID         string
	Text       string
	Start      int
	End        int
	StartToken int
	EndToken   int
}

// Engine segments text into sentences and finds rule spans within it. An
// engine is safe for concurrent use until it is closed.
type Engine struct {
	rules           []compiledRule
	phraseAttribute pattern.Attribute
	logger          *zap.Logger
	closed          atomic.Bool
}

// NewEngine compiles the rules of dictionary. Rules that were skipped while
// loading, or that fail to compile, are logged and left out.
func NewEngine(dictionary *pattern.Dictionary, options Options) (*Engine, error) {
	if dictionary == nil {
		return nil, fmt.Errorf("nlp engine requires a rule dictionary")
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	phraseAttribute, err := parsePhraseAttribute(options.PhraseMatcherAttr)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		phraseAttribute: phraseAttribute,
		logger:          logger,
	}

	for _, skipped := range dictionary.Skipped {
		logger.Warn("Skipping rule",
			zap.String("source", dictionary.Source),
			zap.Int("line", skipped.Line),
			zap.String("label", skipped.Label),
			zap.Error(skipped.Err))
	}

	for _, rule := range dictionary.Rules {
		compiled, err := compileRule(rule, phraseAttribute)
		if err != nil {
			logger.Warn("Skipping rule",
				zap.String("source", dictionary.Source),
				zap.Int("line", rule.Line),
				zap.String("label", rule.Label),
				zap.Error(err))
			continue
		}
		engine.rules = append(engine.rules, compiled)
	}

	logger.Debug("Span ruler ready",
		zap.String("source", dictionary.Source),
		zap.Int("rules", len(engine.rules)),
		zap.String("phrase_attr", string(phraseAttribute)))

	return engine, nil
}

func parsePhraseAttribute(name string) (pattern.Attribute, error) {
	if name == "" {
		return pattern.AttrOrth, nil
	}
	attribute := pattern.Attribute(strings.ToUpper(name))
	switch attribute {
	case pattern.AttrOrth, pattern.AttrText, pattern.AttrLower, pattern.AttrNorm, pattern.AttrLemma:
		return attribute, nil
	}
	return "", fmt.Errorf("%w: phrase matcher attribute %s", pattern.ErrUnsupportedAttribute, name)
}

// RuleCount returns the number of compiled rules.
func (engine *Engine) RuleCount() int {
	return len(engine.rules)
}

// Analyze segments text into sentences.
func (engine *Engine) Analyze(text string) (*Doc, error) {
	if err := engine.check(text); err != nil {
		return nil, err
	}
	return &Doc{Text: text, Sentences: SplitSentences(text)}, nil
}

// Spans returns every rule match in text, ordered by start token, then end
// token, then label, then rule id. Identical matches produced by different
// rules are reported once and empty matches are dropped.
func (engine *Engine) Spans(text string) ([]Span, error) {
	if err := engine.check(text); err != nil {
		return nil, err
	}

	tokens := Tokenize(text)
	markSentenceStarts(tokens, SplitSentences(text))

	type spanKey struct {
		start, end int
		label, id  string
	}
	seen := make(map[spanKey]bool)
	var spans []Span

	for _, rule := range engine.rules {
		for start := range tokens {
			for _, end := range rule.matchEnds(tokens, start) {
				if end <= start {
					continue
				}
				key := spanKey{start: start, end: end, label: rule.label, id: rule.id}
				if seen[key] {
					continue
				}
				seen[key] = true

				byteStart, byteEnd := tokens[start].Start, tokens[end-1].End
				spans = append(spans, Span{
					Label:      rule.label,
					ID:         rule.id,
					Text:       text[byteStart:byteEnd],
					Start:      byteStart,
					End:        byteEnd,
					StartToken: start,
					EndToken:   end,
				})
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		left, right := spans[i], spans[j]
		if left.StartToken != right.StartToken {
			return left.StartToken < right.StartToken
		}
		if left.EndToken != right.EndToken {
			return left.EndToken < right.EndToken
		}
		if left.Label != right.Label {
			return left.Label < right.Label
		}
		return left.ID < right.ID
	})

	return spans, nil
}

// Close releases the engine. Later calls fail with ErrEngineClosed.
func (engine *Engine) Close() error {
	engine.closed.Store(true)
	return nil
}

func (engine *Engine) check(text string) error {
	if engine.closed.Load() {
		return ErrEngineClosed
	}
	if !utf8.ValidString(text) {
		return ErrInvalidText
	}
	return nil
}

func markSentenceStarts(tokens []Token, sentences []Sentence) {
	starts := make(map[int]bool, len(sentences))
	for _, sentence := range sentences {
		starts[sentence.Start] = true
	}
	for index := range tokens {
		if starts[tokens[index].Start] {
			tokens[index].SentenceStart = true
		}
	}
}
