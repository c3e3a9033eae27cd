// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by every command.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
	ColorVerbose   = lipgloss.Color("#9CA3AF")
)

// styles are bound to one output so that color detection follows that
// writer rather than os.Stdout.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Job     lipgloss.Style
	Step    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Command lipgloss.Style
	Verbose lipgloss.Style
}

func newStyles(w io.Writer, scheme string) styles {
	r := lipgloss.NewRenderer(w)
	switch scheme {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(ColorPrimary),
		Muted:   r.NewStyle().Foreground(ColorMuted),
		Job:     r.NewStyle().Bold(true).Foreground(ColorSuccess),
		Step:    r.NewStyle().Foreground(ColorHighlight),
		Success: r.NewStyle().Foreground(ColorSuccess),
		Error:   r.NewStyle().Bold(true).Foreground(ColorError),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Command: r.NewStyle().Foreground(ColorHighlight),
		Verbose: r.NewStyle().Foreground(ColorVerbose),
	}
}
