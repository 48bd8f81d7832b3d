package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/classify"
	"github.com/coolbeans/shamroq/pkg/pipeline"
	"github.com/coolbeans/shamroq/pkg/table"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract SECTION records from the dataset's XML volumes",
		Long: `Parse every XML volume of the dataset and write one row per SECTION
with its SECTNO, SUBJECT and paragraph TEXT.

Example:
  shamroq extract --dataset FAR
  shamroq extract --dataset FAR --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")

			application, err := setupApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			runner := pipeline.NewRunner(application.config, application.logger, nil)
			result, err := runner.Extract(cmd.Context(), application.dataset, table.Format(formatName))
			if err != nil {
				application.logger.Error("Extraction failed", zap.Error(err))
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, volume := range result.Volumes {
				if volume.Err != nil {
					failed++
					fmt.Fprintf(out, "  [FAIL] %s: %v\n", volume.Path, volume.Err)
				}
			}
			fmt.Fprintf(out, "Extracted %d sections from %d volumes (%d failed)\n",
				result.Records, len(result.Volumes), failed)
			printCompletion(cmd, result.OutputPath, result.Duration)
			return nil
		},
	}

	cmd.Flags().String("format", "", "Output format: xlsx or csv (defaults to settings.extract_format)")
	return cmd
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Label each sentence of an extracted table with its deontic category",
		Long: `Read a SECTNO, SUBJECT, TEXT table, split every TEXT into sentences
and keep one row per sentence that matches the rule dictionary. When several
rule spans match one sentence, the last span in order wins.

Example:
  shamroq classify --dataset FAR
  shamroq classify --dataset FAR --input data/far/output/FAR.xlsx --format csv
  shamroq classify --dataset FAR --report reports/far.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, _ := cmd.Flags().GetString("input")
			formatName, _ := cmd.Flags().GetString("format")
			reportPath, _ := cmd.Flags().GetString("report")

			application, err := setupApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			runner := pipeline.NewRunner(application.config, application.logger, nil)
			result, err := runner.Classify(cmd.Context(), application.dataset, pipeline.ClassifyOptions{
				InputPath: inputPath,
				Format:    table.Format(formatName),
			})
			if err != nil {
				application.logger.Error("Classification failed", zap.Error(err))
				return err
			}

			return finishClassify(cmd, result, reportPath)
		},
	}

	cmd.Flags().String("input", "", "Section table to classify (defaults to the dataset's CLASSIFY_INPUT)")
	cmd.Flags().String("format", "", "Output format: xlsx or csv (defaults to settings.classify_format)")
	cmd.Flags().String("report", "", "Write the run report as JSON to this path")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract and classify a dataset in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			reportPath, _ := cmd.Flags().GetString("report")

			application, err := setupApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			runner := pipeline.NewRunner(application.config, application.logger, nil)
			extractResult, classifyResult, err := runner.Run(cmd.Context(), application.dataset)
			if err != nil {
				application.logger.Error("Run failed", zap.Error(err))
				return err
			}

			printCompletion(cmd, extractResult.OutputPath, extractResult.Duration)
			return finishClassify(cmd, classifyResult, reportPath)
		},
	}

	cmd.Flags().String("report", "", "Write the classification report as JSON to this path")
	return cmd
}

func finishClassify(cmd *cobra.Command, result *pipeline.ClassifyResult, reportPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, classify.FormatReport(result.Report))

	if reportPath != "" {
		if err := classify.WriteReportJSON(result.Report, reportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to: %s\n", reportPath)
	}

	printCompletion(cmd, result.OutputPath, result.Duration)
	return nil
}

func printCompletion(cmd *cobra.Command, outputPath string, duration time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Output written to: %s\n", outputPath)
	fmt.Fprintf(out, "Execution time: %s\n", duration.Round(time.Millisecond))
}
