package cmd

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders console text for one writer. Colors are dropped when the
// writer is not a terminal.
type styles struct {
	heading lipgloss.Style
	errTag  lipgloss.Style
	meta    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		heading: r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		errTag:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		meta:    r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s styles) errorLine(err error) string {
	return s.errTag.Render("ERROR:") + " " + err.Error()
}
