package preview

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("255")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Align(lipgloss.Center)

	selectedKeyStyle = keyStyle.BorderForeground(primaryColor)

	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor)
)

// ledColor scales a 24-bit LED color by brightness.
func ledColor(rgb uint32, brightness float64) lipgloss.Color {
	scale := func(c uint32) uint32 {
		return uint32(float64(c&0xFF) * brightness)
	}
	r, g, b := scale(rgb>>16), scale(rgb>>8), scale(rgb)
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, b))
}
