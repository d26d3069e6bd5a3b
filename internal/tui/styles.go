package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type keyHint struct {
	key  string
	desc string
}

func footer(hints ...keyHint) string {
	out := ""
	for i, h := range hints {
		if i > 0 {
			out += "  "
		}
		out += keyStyle.Render(h.key) + " " + h.desc
	}
	return footerStyle.Render(out)
}
