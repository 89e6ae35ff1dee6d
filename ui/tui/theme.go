package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jcccaz/TRIAI/internal/council"
)

type theme struct {
	Header     lipgloss.Style
	Frame      lipgloss.Style
	Panel      lipgloss.Style
	Card       lipgloss.Style
	Divider    lipgloss.Style
	Muted      lipgloss.Style
	Accent     lipgloss.Style
	Success    lipgloss.Style
	Alert      lipgloss.Style
	Danger     lipgloss.Style
	Input      lipgloss.Style
	Overlay    lipgloss.Style
	OverlayBox lipgloss.Style
	Fading     lipgloss.Style
}

func defaultTheme() theme {
	accent := lipgloss.Color("#00FFFF")
	secondary := lipgloss.Color("#7D7D7D")
	success := lipgloss.Color("#00FF00")
	alert := lipgloss.Color("#FFBF00")
	danger := lipgloss.Color("#FF0055")

	return theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondary).
			Padding(0, 1),
		Card: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			PaddingLeft(1),
		Divider: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(secondary),
		Muted: lipgloss.NewStyle().
			Foreground(secondary),
		Accent: lipgloss.NewStyle().
			Foreground(accent),
		Success: lipgloss.NewStyle().
			Foreground(success),
		Alert: lipgloss.NewStyle().
			Foreground(alert),
		Danger: lipgloss.NewStyle().
			Foreground(danger),
		Input: lipgloss.NewStyle().
			Foreground(accent),
		Overlay: lipgloss.NewStyle().
			Foreground(secondary),
		OverlayBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Fading: lipgloss.NewStyle().
			Foreground(secondary).
			Faint(true),
	}
}

// provider paints text in the provider's brand color.
func (th theme) provider(p council.Provider) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Color()))
}

// card is the left-ruled block holding one provider answer.
func (th theme) card(p council.Provider, focused bool) lipgloss.Style {
	st := th.Card.BorderForeground(lipgloss.Color(p.Color()))
	if focused {
		st = st.BorderStyle(lipgloss.ThickBorder())
	}
	return st
}

func (th theme) band(score int) lipgloss.Style {
	switch council.Band(score) {
	case council.BandHigh:
		return th.Success
	case council.BandMedium:
		return th.Alert
	default:
		return th.Danger
	}
}
