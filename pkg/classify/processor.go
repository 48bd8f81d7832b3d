package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/nlp"
	"github.com/coolbeans/shamroq/pkg/types"
)

// Engine is the analysis surface the processor needs: sentence
// segmentation of a whole row and span finding within a sentence.
type Engine interface {
	SpanFinder
	Analyze(text string) (*nlp.Doc, error)
}

// Processor turns a regulation table into deontic matches, one per matched
// sentence.
type Processor struct {
	engine     Engine
	classifier *Classifier
	logger     *zap.Logger
	runID      string
}

// NewProcessor creates a processor. runID is copied into the report.
func NewProcessor(engine Engine, logger *zap.Logger, runID string) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		engine:     engine,
		classifier: NewClassifier(engine, logger),
		logger:     logger,
		runID:      runID,
	}
}

// Process classifies every sentence of every row. Rows with empty text are
// skipped. A row whose text cannot be analyzed is skipped whole, and a
// sentence that fails to classify is skipped alone; both are logged and
// counted in the report. Output follows row order, then sentence order.
//
// The context is checked between rows; cancellation returns the matches
// gathered so far together with the context error.
func (processor *Processor) Process(ctx context.Context, table types.RegulationTable) (types.MatchTable, *Report, error) {
	startTime := time.Now()
	report := &Report{
		RunID:     processor.runID,
		StartedAt: startTime,
		Labels:    make(map[string]int),
	}

	var matches types.MatchTable
	for rowIndex, record := range table {
		if err := ctx.Err(); err != nil {
			report.finish(startTime)
			return matches, report, fmt.Errorf("classification interrupted at row %d: %w", rowIndex, err)
		}
		report.Rows++

		if strings.TrimSpace(record.Text) == "" {
			report.EmptyRows++
			continue
		}

		doc, err := processor.analyzeRow(record.Text)
		if err != nil {
			report.FailedRows++
			processor.logger.Error("Error analyzing row",
				zap.Int("row", rowIndex),
				zap.String("section", record.SectionNumber),
				zap.Error(err))
			continue
		}

		for sentenceIndex, sentence := range doc.Sentences {
			report.Sentences++

			predication, err := processor.classifySentence(sentence.Text)
			if err != nil {
				report.FailedSentences++
				processor.logger.Error("Error processing sentence",
					zap.Int("row", rowIndex),
					zap.String("section", record.SectionNumber),
					zap.Int("sentence", sentenceIndex),
					zap.Error(err))
				continue
			}
			if predication == nil {
				report.Unmatched++
				continue
			}

			report.Matched++
			report.Labels[predication.Label]++
			matches = append(matches, types.DeonticMatch{
				SectionNumber: record.SectionNumber,
				Subject:       record.Subject,
				Sentence:      sentence.Text,
				Label:         predication.Label,
				MatchedText:   predication.MatchedText,
			})
		}
	}

	report.finish(startTime)
	processor.logger.Info("Classification finished",
		zap.Int("rows", report.Rows),
		zap.Int("sentences", report.Sentences),
		zap.Int("matched", report.Matched),
		zap.Int("failed_rows", report.FailedRows),
		zap.Int("failed_sentences", report.FailedSentences),
		zap.Duration("duration", report.Duration))

	return matches, report, nil
}

func (processor *Processor) analyzeRow(text string) (doc *nlp.Doc, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			doc, err = nil, fmt.Errorf("panic while analyzing text: %v", recovered)
		}
	}()
	return processor.engine.Analyze(text)
}

func (processor *Processor) classifySentence(text string) (predication *Predication, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			predication, err = nil, fmt.Errorf("panic while classifying sentence: %v", recovered)
		}
	}()
	return processor.classifier.Classify(text)
}
