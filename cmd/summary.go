package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/challenge"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/pipeline"
)

var (
	accent  = lipgloss.Color("#D97706")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 2)

	statusColors = map[string]lipgloss.Color{
		string(pipeline.StatusCrafted):         success,
		string(challenge.StatusDone):           dim,
		string(pipeline.StatusSkipped):         warning,
		string(challenge.StatusBaselineFailed): warning,
		string(pipeline.StatusUnresolved):      danger,
		string(challenge.StatusFailed):         danger,
	}
)

const nameWidth = 32

// renderSummary draws one row per variant, or per challenge when it produced
// no variants, followed by the totals.
func renderSummary(results []challenge.Result, usage ai.TokenUsage) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("frontend-forge summary"))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-16s %-8s %s", nameWidth, "VERSION", "STATUS", "REPAIRS", "DETAIL")))
	b.WriteString("\n")

	counts := map[string]int{}
	for _, r := range results {
		if len(r.Variants) == 0 {
			counts[string(r.Status)]++
			b.WriteString(row(r.Challenge.Name, string(r.Status), "-", r.Reason))
			continue
		}
		for _, v := range r.Variants {
			counts[string(v.Status)]++
			b.WriteString(row(v.Variant.Name, string(v.Status), fmt.Sprintf("%d", v.AttemptsUsed), v.Reason))
		}
	}

	var totals []string
	for _, status := range []string{
		string(pipeline.StatusCrafted), string(pipeline.StatusUnresolved), string(pipeline.StatusSkipped),
		string(challenge.StatusDone), string(challenge.StatusBaselineFailed), string(challenge.StatusFailed),
	} {
		if counts[status] > 0 {
			totals = append(totals, statusStyle(status).Render(fmt.Sprintf("%d %s", counts[status], status)))
		}
	}
	b.WriteString("\n")
	if len(totals) == 0 {
		b.WriteString(dimStyle.Render("nothing processed"))
	} else {
		b.WriteString(strings.Join(totals, "  "))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("tokens: %d (prompt %d, completion %d)", usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens)))

	return boxStyle.Render(b.String())
}

func row(name, status, repairs, detail string) string {
	return fmt.Sprintf("%-*s %s %-8s %s\n",
		nameWidth, truncate(name, nameWidth),
		statusStyle(status).Render(fmt.Sprintf("%-16s", status)),
		repairs,
		dimStyle.Render(truncate(firstLine(detail), 60)))
}

func statusStyle(status string) lipgloss.Style {
	if c, ok := statusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
