// Package classify labels regulation sentences with the deontic category of
// the rule spans they contain.
package classify

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/nlp"
)

// SpanFinder finds rule spans in a text.
type SpanFinder interface {
	Spans(text string) ([]nlp.Span, error)
}

// Predication is the label and matched text chosen for one piece of text.
type Predication struct {
	Label       string
	RuleID      string
	MatchedText string
	Start       int
	End         int
}

// Classifier reduces the spans found in a text to a single predication.
type Classifier struct {
	finder SpanFinder
	logger *zap.Logger
}

// NewClassifier creates a classifier over finder.
func NewClassifier(finder SpanFinder, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{finder: finder, logger: logger}
}

// Classify returns the predication for text, or nil when no rule matches.
//
// When several spans match, the last one in span order wins. Span order is
// start token, then end token, then label, then rule id, so a longer match
// beginning at the same token overrides a shorter one and a later match
// overrides an earlier one.
func (classifier *Classifier) Classify(text string) (*Predication, error) {
	spans, err := classifier.finder.Spans(text)
	if err != nil {
		classifier.logger.Error("Error analyzing text", zap.Error(err))
		return nil, fmt.Errorf("failed to classify text: %w", err)
	}

	var predication *Predication
	for _, span := range spans {
		predication = &Predication{
			Label:       span.Label,
			RuleID:      span.ID,
			MatchedText: span.Text,
			Start:       span.Start,
			End:         span.End,
		}
	}
	return predication, nil
}
