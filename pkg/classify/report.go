package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Report summarizes one classification run. Unmatched sentences are kept
// apart from sentences that failed.
type Report struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	Rows            int            `json:"rows"`
	EmptyRows       int            `json:"empty_rows"`
	FailedRows      int            `json:"failed_rows"`
	Sentences       int            `json:"sentences"`
	Matched         int            `json:"matched"`
	Unmatched       int            `json:"unmatched"`
	FailedSentences int            `json:"failed_sentences"`
	Labels          map[string]int `json:"labels"`
	Duration        time.Duration  `json:"duration_ns"`
}

func (report *Report) finish(startTime time.Time) {
	report.Duration = time.Since(startTime)
}

// FormatReport formats a Report for terminal output.
func FormatReport(report *Report) string {
	var builder strings.Builder

	builder.WriteString("\nClassification Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	if report.RunID != "" {
		builder.WriteString(fmt.Sprintf("Run: %s\n", report.RunID))
	}
	builder.WriteString(fmt.Sprintf("Rows: %d | Empty: %d | Failed: %d\n",
		report.Rows, report.EmptyRows, report.FailedRows))
	builder.WriteString(fmt.Sprintf("Sentences: %d | Matched: %d | Unmatched: %d | Failed: %d\n",
		report.Sentences, report.Matched, report.Unmatched, report.FailedSentences))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	labels := make([]string, 0, len(report.Labels))
	for label := range report.Labels {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		builder.WriteString(fmt.Sprintf("  %-30s %6d\n", label, report.Labels[label]))
	}
	builder.WriteString(fmt.Sprintf("\nDuration: %s\n", report.Duration.Round(time.Millisecond)))

	return builder.String()
}

// FormatReportJSON formats a Report as JSON.
func FormatReportJSON(report *Report) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// WriteReportJSON writes the JSON form of report to path.
func WriteReportJSON(report *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(FormatReportJSON(report)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
