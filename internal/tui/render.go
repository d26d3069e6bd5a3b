package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer interface {
	Render(string) (string, error)
}

// NewRenderer returns a glamour renderer wrapping at width. It falls back to
// plain text if glamour cannot be initialized.
func NewRenderer(width int) Renderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plainRenderer{}
	}
	return r
}

type plainRenderer struct{}

func (plainRenderer) Render(s string) (string, error) { return s, nil }

func renderMarkdown(md string, r Renderer) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
