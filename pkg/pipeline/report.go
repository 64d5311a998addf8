package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

const (
	RunReportFileName      = "run_report.json"
	ReportMarkdownFileName = "report.md"
)

// RunReport summarizes every variant of a run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	Finished   time.Time      `json:"finished_at"`
	Counts     map[Status]int `json:"counts"`
	TokenUsage ai.TokenUsage  `json:"token_usage"`
	Variants   []Result       `json:"variants"`
}

func NewReport(runID string, startedAt time.Time, results []Result) *RunReport {
	report := &RunReport{
		RunID:     runID,
		StartedAt: startedAt,
		Finished:  time.Now(),
		Counts:    map[Status]int{},
		Variants:  results,
	}
	for _, r := range results {
		report.Counts[r.Status]++
		report.TokenUsage.Add(r.TokenUsage)
	}
	return report
}

func formatMarkdownReport(report *RunReport) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# Run %s\n\n", report.RunID))
	md.WriteString(fmt.Sprintf("**Crafted:** %d  **Unresolved:** %d  **Skipped:** %d\n\n",
		report.Counts[StatusCrafted], report.Counts[StatusUnresolved], report.Counts[StatusSkipped]))
	md.WriteString("## Variants\n\n")

	if len(report.Variants) == 0 {
		md.WriteString("No variants processed.\n")
	} else {
		md.WriteString("| Challenge | Variant | Status | Cycles | Repairs | Reason |\n")
		md.WriteString("|-----------|---------|--------|--------|---------|--------|\n")
		for _, r := range report.Variants {
			reason := strings.ReplaceAll(firstLine(r.Reason), "|", "\\|")
			md.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %s |\n",
				r.Variant.Challenge, r.Variant.Name, r.Status, r.Cycles, r.AttemptsUsed, reason))
		}
	}

	md.WriteString("\n## Token Usage\n\n")
	md.WriteString(fmt.Sprintf("Prompt Tokens: %d\n", report.TokenUsage.PromptTokens))
	md.WriteString(fmt.Sprintf("Completion Tokens: %d\n", report.TokenUsage.CompletionTokens))
	md.WriteString(fmt.Sprintf("Total Tokens: %d\n", report.TokenUsage.TotalTokens))

	return md.String()
}

// WriteReport writes the JSON and markdown reports into targetDir.
func WriteReport(report *RunReport, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		logger.Errorf("Error creating report directory %s: %v", targetDir, err)
		return fmt.Errorf("creating report directory: %w", err)
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling run report: %w", err)
	}
	reportFile := filepath.Join(targetDir, RunReportFileName)
	logger.Debugf("Writing run report to %s", reportFile)
	if err := os.WriteFile(reportFile, reportJSON, 0644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}

	reportMarkdownFile := filepath.Join(targetDir, ReportMarkdownFileName)
	logger.Debugf("Writing markdown report to %s", reportMarkdownFile)
	if err := os.WriteFile(reportMarkdownFile, []byte(formatMarkdownReport(report)), 0644); err != nil {
		return fmt.Errorf("writing markdown report: %w", err)
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
