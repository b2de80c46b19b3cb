package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// palette holds the ANSI-256 color values used throughout the CLI.
var (
	clrBrand  = lipgloss.Color("214") // orange
	clrYellow = lipgloss.Color("220")
	clrDim    = lipgloss.Color("245")
	clrWhite  = lipgloss.Color("255")
)

// styles wraps lipgloss renderers that respect TTY detection.
// When output is not a terminal (piped, redirected), all styling is
// disabled and raw text is emitted.
type styles struct {
	enabled bool

	Dim     lipgloss.Style
	Header  lipgloss.Style // section headers
	Key     lipgloss.Style // label in key=value output
	Value   lipgloss.Style // value in key=value output
	Warning lipgloss.Style // warning lines
}

// newStyles creates a styles instance. Colors are enabled only when w
// points to a terminal file descriptor and plain is false.
func newStyles(w io.Writer, plain bool) styles {
	enabled := false
	if !plain {
		if f, ok := w.(*os.File); ok {
			enabled = term.IsTerminal(int(f.Fd()))
		}
	}

	s := styles{enabled: enabled}
	if !enabled {
		noop := lipgloss.NewStyle()
		s.Dim = noop
		s.Header = noop
		s.Key = noop
		s.Value = noop
		s.Warning = noop
		return s
	}

	s.Dim = lipgloss.NewStyle().Foreground(clrDim)
	s.Header = lipgloss.NewStyle().Bold(true).Foreground(clrBrand)
	s.Key = lipgloss.NewStyle().Foreground(clrDim)
	s.Value = lipgloss.NewStyle().Foreground(clrWhite)
	s.Warning = lipgloss.NewStyle().Foreground(clrYellow).Bold(true)
	return s
}

// kv formats a key-value pair like "  key:  value".
func (s styles) kv(key, value string) string {
	if !s.enabled {
		return fmt.Sprintf("  %-24s %s", key+":", value)
	}
	return fmt.Sprintf("  %s %s",
		s.Key.Render(fmt.Sprintf("%-24s", key+":")),
		s.Value.Render(value),
	)
}

func (s styles) sectionHeader(title string) string {
	if !s.enabled {
		return title
	}
	return s.Header.Render(title)
}

// dim wraps text in dim/muted styling.
func (s styles) dim(text string) string {
	if !s.enabled {
		return text
	}
	return s.Dim.Render(text)
}

// warnPrefix returns a styled "WARNING:" prefix.
func (s styles) warnPrefix() string {
	if !s.enabled {
		return "WARNING:"
	}
	return s.Warning.Render("WARNING:")
}
