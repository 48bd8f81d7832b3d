package volume

import (
	"fmt"
	"strings"
)

// FormatBytes converts byte count to human-readable format.
func FormatBytes(byteCount int64) string {
	switch {
	case byteCount >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(byteCount)/(1024*1024*1024))
	case byteCount >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(byteCount)/(1024*1024))
	case byteCount >= 1024:
		return fmt.Sprintf("%.1f KB", float64(byteCount)/1024)
	default:
		return fmt.Sprintf("%d B", byteCount)
	}
}

// FormatResults formats fetch results for terminal output.
func FormatResults(results []Result) string {
	var builder strings.Builder

	succeeded, skipped, failed := 0, 0, 0
	for _, result := range results {
		switch {
		case result.Err != nil:
			failed++
		case result.Skipped:
			skipped++
		default:
			succeeded++
		}
	}

	builder.WriteString("\nVolume Fetch Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Attempted: %d | Downloaded: %d | Skipped: %d | Failed: %d\n",
		len(results), succeeded, skipped, failed))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, result := range results {
		status := "[OK]"
		switch {
		case result.Err != nil:
			status = "[FAIL]"
		case result.Skipped:
			status = "[SKIP]"
		}

		line := fmt.Sprintf("  %-8s %-40s", status, result.Volume)
		if result.Err != nil {
			line += fmt.Sprintf(" error: %s", result.Err)
		} else {
			line += " " + FormatBytes(result.Bytes)
		}
		builder.WriteString(line + "\n")
	}

	return builder.String()
}
