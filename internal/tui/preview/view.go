package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/macropad/internal/device"
	"github.com/marcus/macropad/internal/models"
	"github.com/marcus/macropad/internal/output"
)

const (
	cellWidth     = 12
	activityLines = 8
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width > 0 && m.Width < MinWidth {
		return m.renderCompact()
	}

	sections := []string{
		m.renderHeader(),
		m.renderGrid(),
		m.renderDetail(),
		m.renderActivity(),
	}
	if m.Err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("reload failed: %v", m.Err)))
	}
	sections = append(sections, m.Help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderCompact renders a minimal view for narrow terminals
func (m Model) renderCompact() string {
	name := m.sink.name
	if name == "" {
		name = "(no profiles)"
	}
	return fmt.Sprintf("%s  key%d\n\nq:quit tab:profile enter:press", name, m.Cursor+1)
}

func (m Model) renderHeader() string {
	name := m.sink.name
	if name == "" {
		name = "no profiles"
	}
	idx := m.loop.Selection().Index(m.store)
	status := subtleStyle.Render(fmt.Sprintf("%d/%d  brightness %.1f  %s",
		min(idx+1, m.store.Len()), m.store.Len(), m.sink.brightness, m.Dir))
	width := (cellWidth + 2) * output.GridColumns
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(width).Align(lipgloss.Center).Render(ansi.Truncate(name, width-2, "…")),
		status)
}

func (m Model) renderGrid() string {
	labels := m.sink.labels
	var rows []string
	for start := 0; start < models.NumKeys; start += output.GridColumns {
		cells := make([]string, 0, output.GridColumns)
		for i := start; i < start+output.GridColumns; i++ {
			var label device.KeyLabel
			if i < len(labels) {
				label = labels[i]
			}
			text := label.Name
			if text == "" {
				text = "·"
			}
			text = ansi.Truncate(text, cellWidth, "…")

			style := lipgloss.NewStyle().Foreground(mutedColor)
			if label.Color != 0 {
				style = lipgloss.NewStyle().Foreground(ledColor(label.Color, m.sink.brightness))
			}
			box := keyStyle
			if i == m.Cursor {
				box = selectedKeyStyle
			}
			cells = append(cells, box.Width(cellWidth).Render(style.Render(text)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderDetail() string {
	p := m.Current()
	if p == nil {
		return panelStyle.Render(subtleStyle.Render("Add a record to " + m.Dir + " to preview it"))
	}
	return panelStyle.Render(output.FormatKey(m.Cursor, p.Key(m.Cursor)))
}

func (m Model) renderActivity() string {
	lines := m.sink.activity
	if len(lines) > activityLines {
		lines = lines[len(lines)-activityLines:]
	}
	body := subtleStyle.Render("press enter to fire the selected key")
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	return panelStyle.Render(titleStyle.Render("OUTPUT") + "\n" + body)
}
