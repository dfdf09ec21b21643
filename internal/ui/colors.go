package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	colorAccent = "#1DB954"
	colorError  = "#E22134"
	colorStatus = "#FFA42B"
	colorMuted  = "#727272"
)

var styles = NewPalette(colorAccent, colorError, colorStatus, colorMuted)

// Palette holds the styles shared by the views and the now-playing bar.
type Palette struct {
	track      lipgloss.Style
	failure    lipgloss.Style
	status     lipgloss.Style
	muted      lipgloss.Style
	nowPlaying lipgloss.Style
	accent     string
}

func NewPalette(accent, failure, status, muted string) *Palette {
	return &Palette{
		track:   lipgloss.NewStyle().Foreground(lipgloss.Color(accent)).Bold(true),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color(failure)).Bold(true),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color(status)),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(muted)).Italic(true),
		nowPlaying: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color(muted)).
			PaddingLeft(1),
		accent: accent,
	}
}
