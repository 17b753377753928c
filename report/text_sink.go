package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/replprobe/replprobe/types"
)

const summaryFileName = "summary.txt"

// TextSummarySink writes a plain-text report of each run under a base
// directory, one subdirectory per run ID.
type TextSummarySink struct {
	baseDir string
}

// NewTextSummarySink creates a sink rooted at baseDir.
func NewTextSummarySink(baseDir string) *TextSummarySink {
	return &TextSummarySink{baseDir: baseDir}
}

// Complete writes the summary file for a finished run and returns its path.
func (s *TextSummarySink) Complete(runID string, summaryLine string, severity types.Severity, records []types.TestResultRecord) (string, error) {
	outputDir := filepath.Join(s.baseDir, "testrun-"+runID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s\n", runID, severity)
	b.WriteString(summaryLine)
	b.WriteString("\n")
	for _, rec := range records {
		problems := rec.Problems()
		if len(problems) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%s)\n", rec.TestID, rec.SourceFile)
		for _, p := range problems {
			fmt.Fprintf(&b, "  line %d [%s] %s\n", p.Line, p.Kind, p.ProblemMessage())
		}
	}

	outputPath := filepath.Join(outputDir, summaryFileName)
	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file %s: %w", outputPath, err)
	}
	return outputPath, nil
}
