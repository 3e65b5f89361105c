package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/macropad/internal/models"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/symbol"
)

// GridColumns is the keypad width; keys fill rows left to right.
const GridColumns = 3

const minCellWidth = 6

// KeyStyle colors a key label with its LED color. Unlit keys are dimmed.
func KeyStyle(k models.KeyAction) lipgloss.Style {
	if k.Color == 0 {
		return subtleStyle
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(k.ColorHex()))
}

// FormatGrid renders the 3x4 key layout of p with cells of the given width.
// selected highlights one key; pass -1 for none.
func FormatGrid(p *profile.Profile, cellWidth, selected int) string {
	cellWidth = max(cellWidth, minCellWidth)
	cell := lipgloss.NewStyle().
		Width(cellWidth).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238"))

	var rows []string
	for start := 0; start < models.NumKeys; start += GridColumns {
		cells := make([]string, 0, GridColumns)
		for i := start; i < start+GridColumns && i < models.NumKeys; i++ {
			k := p.Key(i)
			label := k.Name
			if label == "" {
				label = "·"
			}
			label = ansi.Truncate(label, cellWidth, "…")
			style := cell
			if i == selected {
				style = style.BorderForeground(lipgloss.Color("212"))
			}
			cells = append(cells, style.Render(KeyStyle(k).Render(label)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// FormatKey describes one key slot on a single line.
func FormatKey(index int, k models.KeyAction) string {
	parts := []string{
		titleStyle.Render(fmt.Sprintf("%-5s", models.SlotID(index))),
		KeyStyle(k).Render(k.ColorHex()),
	}
	name := k.Name
	if name == "" {
		name = subtleStyle.Render("(unnamed)")
	}
	parts = append(parts, name)
	if len(k.Actions) > 0 {
		parts = append(parts, DescribeActions(k.Actions))
	}
	if k.Sound != "" {
		parts = append(parts, subtleStyle.Render("sound="+k.Sound))
	}
	if k.HasTone() {
		parts = append(parts, subtleStyle.Render(fmt.Sprintf("tone=%dHz", k.Tone)))
	}
	return strings.Join(parts, "  ")
}

// DescribeActions joins action descriptions with arrows.
func DescribeActions(actions []models.Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = symbol.Describe(a)
	}
	return strings.Join(parts, " → ")
}

// FormatProfile renders a profile header, grid and per-key detail.
func FormatProfile(p *profile.Profile, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(p.Name))
	if p.Path != "" {
		sb.WriteString("  " + subtleStyle.Render(p.Path))
	}
	sb.WriteString("\n")

	cellWidth := (width / GridColumns) - 2
	sb.WriteString(FormatGrid(p, min(cellWidth, 18), -1))
	sb.WriteString("\n")

	sb.WriteString(SectionHeader("keys"))
	for i := range models.NumKeys {
		k := p.Key(i)
		if k.Name == "" && len(k.Actions) == 0 && k.Sound == "" && !k.HasTone() {
			continue
		}
		sb.WriteString("  " + FormatKey(i, k) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
