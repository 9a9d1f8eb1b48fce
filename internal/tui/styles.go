package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/sortable-table/internal/theme"
)

// Styles are the lipgloss styles derived from a skin.
type Styles struct {
	Header       lipgloss.Style
	SortedHeader lipgloss.Style
	Cell         lipgloss.Style
	SortedCell   lipgloss.Style
	Cursor       lipgloss.Style
	Border       lipgloss.Style
	Title        lipgloss.Style
	Status       lipgloss.Style
	Tooltip      lipgloss.Style
	Error        lipgloss.Style
	Dim          lipgloss.Style
}

// NewStyles builds the terminal styles for skin.
func NewStyles(skin theme.Skin) Styles {
	l, d := skin.Light, skin.Dark
	headerFg := theme.Lipgloss(l.HeaderColor, d.HeaderColor)
	headerBg := theme.Lipgloss(l.HeaderBg, d.HeaderBg)
	sortFg := theme.Lipgloss(l.HeaderSort, d.HeaderSort)
	bodyFg := theme.Lipgloss(l.BodyColor, d.BodyColor)
	hiFg := theme.Lipgloss(l.HighlightColor, d.HighlightColor)
	hiBg := theme.Lipgloss(l.HighlightBg, d.HighlightBg)
	border := theme.Lipgloss(l.BorderColor, d.BorderColor)

	return Styles{
		Header:       lipgloss.NewStyle().Foreground(headerFg).Background(headerBg).Bold(true).Padding(0, 1),
		SortedHeader: lipgloss.NewStyle().Foreground(sortFg).Background(headerBg).Bold(true).Padding(0, 1),
		Cell:         lipgloss.NewStyle().Foreground(bodyFg).Padding(0, 1),
		SortedCell:   lipgloss.NewStyle().Foreground(bodyFg).Bold(true).Padding(0, 1),
		Cursor:       lipgloss.NewStyle().Foreground(hiFg).Background(hiBg).Padding(0, 1),
		Border:       lipgloss.NewStyle().Foreground(border),
		Title:        lipgloss.NewStyle().Foreground(sortFg).Bold(true),
		Status:       lipgloss.NewStyle().Foreground(bodyFg),
		Tooltip:      lipgloss.NewStyle().Foreground(hiFg).Italic(true),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6666")).Bold(true),
		Dim:          lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}
