package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wueestry/autoscout/pkg/vulndb"
)

var scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

// Advisories renders the CVE findings of one run grouped by port.
// Returns the empty string when there is nothing to show.
func Advisories(findings map[int][]vulndb.Advisory) string {
	if len(findings) == 0 {
		return ""
	}

	ports := make([]int, 0, len(findings))
	total := 0
	for port, advisories := range findings {
		ports = append(ports, port)
		total += len(advisories)
	}
	sort.Ints(ports)

	rows := []string{headerStyle.Render(fmt.Sprintf("Known vulnerabilities (%d)", total))}
	for _, port := range ports {
		rows = append(rows, fmt.Sprintf("  port %d", port))
		for _, adv := range findings[port] {
			line := fmt.Sprintf("    %s", adv.ID)
			if adv.Severity != "" {
				line += fmt.Sprintf("  %s", scoreStyle.Render(fmt.Sprintf("%s %.1f", adv.Severity, adv.Score)))
			}
			rows = append(rows, line)
			if adv.Summary != "" {
				rows = append(rows, dimStyle.Render("      "+truncate(adv.Summary, 100)))
			}
			rows = append(rows, dimStyle.Render("      "+adv.URL))
		}
	}
	return strings.Join(rows, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
