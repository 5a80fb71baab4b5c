// Package report renders the end-of-run summary printed by rank 0 and
// optionally ships the CSV row to S3.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	foundStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))
)

// CSV renders the machine-readable result row. Scaling scripts grep for
// the "CSV:" prefix, so the format is fixed.
func CSV(s traverse.Summary) string {
	return fmt.Sprintf("CSV: %d,%d,%f,%d",
		s.Workers, s.TotalVertices, s.MaxElapsed.Seconds(), s.Visited)
}

// Render returns the human-readable summary block followed by the CSV row.
func Render(s traverse.Summary) string {
	outcome := missStyle.Render("target not reached")
	if s.Found {
		outcome = foundStyle.Render("target found")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "workers        %d\n", s.Workers)
	fmt.Fprintf(&b, "vertices       %d\n", s.TotalVertices)
	fmt.Fprintf(&b, "visited        %d\n", s.Visited)
	fmt.Fprintf(&b, "max elapsed    %s\n", s.MaxElapsed)
	fmt.Fprintf(&b, "outcome        %s", outcome)

	block := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("distributed traversal"),
		boxStyle.Render(b.String()),
	)
	return block + "\n" + CSV(s) + "\n"
}
