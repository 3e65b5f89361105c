package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the current terminal width or a fallback when unavailable.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = defaultMarkdownWidth
	}

	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if parsed, err := strconv.Atoi(cols); err == nil && parsed > 0 {
			return parsed
		}
	}

	return fallback
}

// SymbolTable builds a markdown table of symbol names and their codes.
func SymbolTable(title string, names []string, lookup func(string) (int, bool)) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n| Symbol | Code |\n|---|---|\n", title)
	for _, name := range names {
		code, _ := lookup(name)
		fmt.Fprintf(&sb, "| `%s` | `0x%02X` (%d) |\n", name, code, code)
	}
	return sb.String()
}

// RenderMarkdown renders markdown using Glamour with terminal-aware wrapping.
// Output that is not a terminal gets the source text unchanged.
func RenderMarkdown(text string) (string, error) {
	if !IsTerminal() {
		return strings.TrimRight(text, "\n"), nil
	}
	return RenderMarkdownWithWidth(text, TerminalWidth(defaultMarkdownWidth))
}

// RenderMarkdownWithWidth renders markdown using Glamour with explicit wrapping.
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if width < minMarkdownWidth {
		width = minMarkdownWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	rendered, err := renderer.Render(text)
	if err != nil {
		return "", err
	}

	return strings.TrimRight(rendered, "\n"), nil
}
