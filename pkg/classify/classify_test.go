package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/coolbeans/shamroq/pkg/nlp"
	"github.com/coolbeans/shamroq/pkg/pattern"
	"github.com/coolbeans/shamroq/pkg/types"
)

func newEngine(t *testing.T, rules ...string) *nlp.Engine {
	t.Helper()
	dictionary, err := pattern.ReadJSONL(strings.NewReader(strings.Join(rules, "\n")), "test")
	require.NoError(t, err)
	engine, err := nlp.NewEngine(dictionary, nlp.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

const shallRule = `{"label": "OBLIGATION", "pattern": "shall"}`

func TestClassifySingleSpan(t *testing.T) {
	classifier := NewClassifier(newEngine(t, shallRule), nil)

	predication, err := classifier.Classify("No person shall park here.")
	require.NoError(t, err)
	require.NotNil(t, predication)
	assert.Equal(t, "OBLIGATION", predication.Label)
	assert.Equal(t, "shall", predication.MatchedText)
}

func TestClassifyNoMatch(t *testing.T) {
	classifier := NewClassifier(newEngine(t, shallRule), nil)

	predication, err := classifier.Classify("This is informational.")
	require.NoError(t, err)
	assert.Nil(t, predication)
}

func TestClassifyLastMatchWins(t *testing.T) {
	t.Run("later span overrides earlier span", func(t *testing.T) {
		classifier := NewClassifier(newEngine(t,
			shallRule,
			`{"label": "ACTION", "pattern": "park"}`), nil)

		predication, err := classifier.Classify("No person shall park here.")
		require.NoError(t, err)
		require.NotNil(t, predication)
		assert.Equal(t, "ACTION", predication.Label)
		assert.Equal(t, "park", predication.MatchedText)
	})

	t.Run("longer span at same start overrides shorter", func(t *testing.T) {
		classifier := NewClassifier(newEngine(t,
			shallRule,
			`{"label": "PROHIBITION", "pattern": [{"LOWER": "shall"}, {"LOWER": "not"}]}`), nil)

		predication, err := classifier.Classify("You shall not park.")
		require.NoError(t, err)
		require.NotNil(t, predication)
		assert.Equal(t, "PROHIBITION", predication.Label)
		assert.Equal(t, "shall not", predication.MatchedText)
	})

	t.Run("rule file order does not matter", func(t *testing.T) {
		classifier := NewClassifier(newEngine(t,
			`{"label": "ACTION", "pattern": "park"}`,
			shallRule), nil)

		predication, err := classifier.Classify("No person shall park here.")
		require.NoError(t, err)
		assert.Equal(t, "ACTION", predication.Label)
	})
}

func TestClassifyLogsAndReturnsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	engine := newEngine(t, shallRule)
	classifier := NewClassifier(engine, zap.New(core))

	_, err := classifier.Classify("bad \xff")
	assert.ErrorIs(t, err, nlp.ErrInvalidText)
	assert.Equal(t, 1, logs.FilterMessage("Error analyzing text").Len())

	require.NoError(t, engine.Close())
	_, err = classifier.Classify("You shall.")
	assert.ErrorIs(t, err, nlp.ErrEngineClosed)
}

func TestProcessEndToEndRow(t *testing.T) {
	processor := NewProcessor(newEngine(t, shallRule), nil, "run-1")
	table := types.RegulationTable{{
		SectionNumber: "1.1",
		Subject:       "Scope.",
		Text:          "No person shall park here. This is informational.",
	}}

	matches, report, err := processor.Process(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, types.MatchTable{{
		SectionNumber: "1.1",
		Subject:       "Scope.",
		Sentence:      "No person shall park here.",
		Label:         "OBLIGATION",
		MatchedText:   "shall",
	}}, matches)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 2, report.Sentences)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, map[string]int{"OBLIGATION": 1}, report.Labels)
}

func TestProcessOrderingAndEmptyRows(t *testing.T) {
	processor := NewProcessor(newEngine(t,
		shallRule,
		`{"label": "PERMISSION", "pattern": "may"}`), nil, "")

	table := types.RegulationTable{
		{SectionNumber: "1", Subject: "A", Text: "The owner may appeal. The board shall decide."},
		{SectionNumber: "2", Subject: "B", Text: ""},
		{SectionNumber: "3", Subject: "C", Text: "   "},
		{SectionNumber: "4", Subject: "D", Text: "Nothing to see. Applicants shall register."},
	}

	matches, report, err := processor.Process(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"1", "1", "4"}, []string{matches[0].SectionNumber, matches[1].SectionNumber, matches[2].SectionNumber})
	assert.Equal(t, "PERMISSION", matches[0].Label)
	assert.Equal(t, "The board shall decide.", matches[1].Sentence)
	assert.Equal(t, "Applicants shall register.", matches[2].Sentence)
	assert.Equal(t, "D", matches[2].Subject)

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.EmptyRows)
	assert.Equal(t, 4, report.Sentences)
	assert.Equal(t, 3, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
}

func TestProcessNoMatchesYieldsNoRows(t *testing.T) {
	processor := NewProcessor(newEngine(t, shallRule), nil, "")
	table := types.RegulationTable{{SectionNumber: "9", Subject: "Info.", Text: "This is informational. So is this."}}

	matches, report, err := processor.Process(context.Background(), table)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 2, report.Unmatched)
}

// scriptedEngine fails or panics on chosen inputs and otherwise delegates.
type scriptedEngine struct {
	delegate      Engine
	failAnalyze   string
	failSentence  string
	panicSentence string
}

func (engine *scriptedEngine) Analyze(text string) (*nlp.Doc, error) {
	if text == engine.failAnalyze {
		return nil, errors.New("analysis failed")
	}
	return engine.delegate.Analyze(text)
}

func (engine *scriptedEngine) Spans(text string) ([]nlp.Span, error) {
	switch text {
	case engine.failSentence:
		return nil, errors.New("span failure")
	case engine.panicSentence:
		panic("unexpected token state")
	}
	return engine.delegate.Spans(text)
}

func TestProcessIsolatesFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	engine := &scriptedEngine{
		delegate:      newEngine(t, shallRule),
		failAnalyze:   "Tenants shall pay. Row is broken.",
		failSentence:  "Landlords shall repair.",
		panicSentence: "Guests shall leave.",
	}
	processor := NewProcessor(engine, zap.New(core), "")

	table := types.RegulationTable{
		{SectionNumber: "1", Text: "Tenants shall pay. Row is broken."},
		{SectionNumber: "2", Text: "Landlords shall repair. Guests shall leave. Owners shall insure."},
	}

	matches, report, err := processor.Process(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Owners shall insure.", matches[0].Sentence)

	assert.Equal(t, 1, report.FailedRows)
	assert.Equal(t, 2, report.FailedSentences)
	assert.Equal(t, 3, report.Sentences)
	assert.Equal(t, 1, logs.FilterMessage("Error analyzing row").Len())
	assert.Equal(t, 2, logs.FilterMessage("Error processing sentence").Len())
}

func TestProcessCancelled(t *testing.T) {
	processor := NewProcessor(newEngine(t, shallRule), nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches, report, err := processor.Process(ctx, types.RegulationTable{{SectionNumber: "1", Text: "You shall."}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, matches)
	assert.Equal(t, 0, report.Rows)
}

func TestFormatReport(t *testing.T) {
	report := &Report{
		RunID:     "abc",
		Rows:      3,
		Sentences: 5,
		Matched:   2,
		Unmatched: 3,
		Labels:    map[string]int{"PROHIBITION": 1, "OBLIGATION": 1},
	}

	output := FormatReport(report)
	assert.Contains(t, output, "Run: abc")
	assert.Contains(t, output, "Matched: 2 | Unmatched: 3")
	assert.Less(t, strings.Index(output, "OBLIGATION"), strings.Index(output, "PROHIBITION"))

	assert.Contains(t, FormatReportJSON(report), `"matched": 2`)
}
