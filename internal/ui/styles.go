// Package ui renders records and presets for the terminal.
package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

// Styles holds the lipgloss styles for one output stream.
type Styles struct {
	Title    lipgloss.Style
	Dim      lipgloss.Style
	Bold     lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Doing    lipgloss.Style
	Todo     lipgloss.Style
	Done     lipgloss.Style
	Priority map[string]lipgloss.Style
}

// NewStyles builds styles for w. Colour is only used when color is true
// and w is a terminal.
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	if !color || !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Title:   r.NewStyle().Bold(true),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Bold:    r.NewStyle().Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		Doing:   r.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true),
		Todo:    r.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		Done:    r.NewStyle().Foreground(lipgloss.Color("#6B7280")).Strikethrough(true),
		Priority: map[string]lipgloss.Style{
			"urgent": r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
			"high":   r.NewStyle().Foreground(lipgloss.Color("#F97316")),
			"medium": r.NewStyle().Foreground(lipgloss.Color("#EAB308")),
			"low":    r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		},
	}
}

// status picks the style for a status name.
func (s Styles) status(name string) lipgloss.Style {
	switch strings.ToLower(name) {
	case "doing", "now", "in progress":
		return s.Doing
	case "done", "canceled", "cancelled":
		return s.Done
	default:
		return s.Todo
	}
}

func (s Styles) priority(name string) lipgloss.Style {
	if st, ok := s.Priority[strings.ToLower(name)]; ok {
		return st
	}
	return s.Bold
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of w, or DefaultWidth when w is not a
// terminal.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

