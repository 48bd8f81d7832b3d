package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/classify"
	"github.com/coolbeans/shamroq/pkg/nlp"
	"github.com/coolbeans/shamroq/pkg/pattern"
	"github.com/coolbeans/shamroq/pkg/pipeline"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and test the rule dictionary",
	}
	cmd.PersistentFlags().String("rules", "", "Rule file (defaults to settings.rules_file)")

	cmd.AddCommand(patternsCheckCmd())
	cmd.AddCommand(patternsTestCmd())
	return cmd
}

func rulesPath(cmd *cobra.Command, application *app) string {
	path, _ := cmd.Flags().GetString("rules")
	if path == "" {
		path = application.config.Settings.RulesFile
	}
	return path
}

func patternsCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the rule dictionary and summarize it per label",
		Long: `Load and compile the rule dictionary, list rules that were skipped
because they use attributes the engine cannot evaluate, and count rules per
label. With --watch the check is repeated whenever the file changes.

Example:
  shamroq patterns check
  shamroq patterns check --rules config/custom.jsonl --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")

			application, err := setupApp(cmd, true)
			if err != nil {
				return err
			}
			defer application.Close()

			path := rulesPath(cmd, application)
			out := cmd.OutOrStdout()

			dictionary, err := pipeline.LoadRules(path)
			if err != nil {
				return err
			}
			if err := checkDictionary(out, dictionary, application); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			watcher, err := pattern.NewWatcher(path, func(dictionary *pattern.Dictionary, err error) {
				if err != nil {
					fmt.Fprintf(out, "\nReload failed: %v\n", err)
					application.logger.Warn("Rule reload failed", zap.Error(err))
					return
				}
				if err := checkDictionary(out, dictionary, application); err != nil {
					fmt.Fprintf(out, "\nCheck failed: %v\n", err)
				}
			})
			if err != nil {
				return err
			}
			defer watcher.Close()

			fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)\n", watcher.Path())
			if err := watcher.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Bool("watch", false, "Re-check the dictionary whenever the file changes")
	return cmd
}

func checkDictionary(out io.Writer, dictionary *pattern.Dictionary, application *app) error {
	engine, err := nlp.NewEngine(dictionary, nlp.Options{
		PhraseMatcherAttr: application.config.Settings.PhraseMatcherAttr,
		Logger:            application.logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(out, "\nRule Dictionary: %s\n", dictionary.Source)
	fmt.Fprintln(out, strings.Repeat("═", 60))
	fmt.Fprintf(out, "Loaded: %d | Compiled: %d | Skipped: %d\n",
		dictionary.Len(), engine.RuleCount(), len(dictionary.Skipped))

	for _, skipped := range dictionary.Skipped {
		fmt.Fprintf(out, "  [SKIP] line %d %s: %v\n", skipped.Line, skipped.Label, skipped.Err)
	}

	fmt.Fprintln(out, strings.Repeat("─", 60))
	labels := dictionary.Labels()
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-30s %6d\n", name, labels[name])
	}
	return nil
}

func patternsTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <text>",
		Short: "Show the sentences, spans and winning label for a piece of text",
		Long: `Run text through the sentence splitter and span ruler and print every
span found in each sentence together with the label the classifier keeps.

Example:
  shamroq patterns test "No person shall park here. This is informational."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := setupApp(cmd, true)
			if err != nil {
				return err
			}
			defer application.Close()

			dictionary, err := pipeline.LoadRules(rulesPath(cmd, application))
			if err != nil {
				return err
			}
			engine, err := nlp.NewEngine(dictionary, nlp.Options{
				PhraseMatcherAttr: application.config.Settings.PhraseMatcherAttr,
				Logger:            application.logger,
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			doc, err := engine.Analyze(strings.Join(args, " "))
			if err != nil {
				return err
			}

			classifier := classify.NewClassifier(engine, application.logger)
			out := cmd.OutOrStdout()
			for index, sentence := range doc.Sentences {
				fmt.Fprintf(out, "[%d] %s\n", index+1, sentence.Text)

				spans, err := engine.Spans(sentence.Text)
				if err != nil {
					return err
				}
				for _, span := range spans {
					fmt.Fprintf(out, "      span  %-20s %q\n", span.Label, span.Text)
				}

				predication, err := classifier.Classify(sentence.Text)
				if err != nil {
					return err
				}
				if predication == nil {
					fmt.Fprintln(out, "      => no match")
					continue
				}
				fmt.Fprintf(out, "      => %s %q\n", predication.Label, predication.MatchedText)
			}
			return nil
		},
	}
}
