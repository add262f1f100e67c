// Package report renders run summaries for the terminal. The engine emits
// no console output itself; this is the display collaborator consuming
// the ordered result collection.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wueestry/autoscout/pkg/engine"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

// Summary renders the result collection and derived port facts of one
// completed run.
func Summary(sc *engine.ScanContext, results []*engine.Result) string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("Scan summary for %s", sc.TargetIP)))
	sections = append(sections, dimStyle.Render("run "+sc.RunID()))
	sections = append(sections, sectionStyle.Render(renderResults(results)))

	if openPorts := sc.OpenPorts(); len(openPorts) > 0 {
		sections = append(sections, sectionStyle.Render(renderPorts(openPorts, sc.Services())))
	} else {
		sections = append(sections, sectionStyle.Render(dimStyle.Render("No open ports discovered.")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderResults(results []*engine.Result) string {
	rows := []string{headerStyle.Render(fmt.Sprintf("%-18s %-10s %10s  %s", "SCAN", "STATUS", "DURATION", "DETAIL"))}
	for _, r := range results {
		status := okStyle.Render("success")
		switch {
		case r.Skipped():
			status = skipStyle.Render("skipped")
		case !r.Success:
			status = failStyle.Render("failed")
		}
		detail := r.Error
		if r.Skipped() {
			detail = "conditions not met"
		}
		rows = append(rows, fmt.Sprintf("%-18s %-10s %9.2fs  %s",
			r.ScanName, status, r.Duration().Seconds(), detail))
	}
	return strings.Join(rows, "\n")
}

func renderPorts(openPorts []int, services map[int]string) string {
	rows := []string{headerStyle.Render(fmt.Sprintf("Open ports (%d)", len(openPorts)))}
	sort.Ints(openPorts)
	for _, port := range openPorts {
		service := services[port]
		if service == "" {
			service = "unknown"
		}
		rows = append(rows, fmt.Sprintf("  %5d  %s", port, service))
	}
	return strings.Join(rows, "\n")
}
