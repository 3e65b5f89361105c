// Package output provides styled terminal output helpers (success, error,
// warning, profile formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/macropad/internal/journal"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	kindStyles   = map[string]lipgloss.Style{
		"NOT_FOUND":       lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"INVALID_PAYLOAD": lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		"ALREADY_EXIST":   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		"UNKNOWN":         lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Title renders s in bold.
func Title(s string) string { return titleStyle.Render(s) }

// Subtle renders s dimmed.
func Subtle(s string) string { return subtleStyle.Render(s) }

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeConflict     = "conflict"
	ErrCodeDeviceError  = "device_error"
	ErrCodeChannelError = "channel_error"
	ErrCodeJournalError = "journal_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	JSONErrorWithDetails(code, message, nil)
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
	fmt.Println(string(data))
}

// FormatKind renders a wire error kind with its color.
func FormatKind(kind string) string {
	style, ok := kindStyles[kind]
	if !ok {
		return kind
	}
	return style.Render(kind)
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// FormatJournalEntry renders one journal row on a single line.
func FormatJournalEntry(e journal.Entry) string {
	outcome := successStyle.Render("ok")
	if !e.OK {
		outcome = FormatKind(e.ErrorKind)
	}
	parts := []string{
		subtleStyle.Render(fmt.Sprintf("#%d", e.ID)),
		subtleStyle.Render(FormatTimeAgo(e.Timestamp)),
		titleStyle.Render(e.Operation),
		outcome,
		subtleStyle.Render(e.Duration.String()),
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return strings.Join(parts, "  ")
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nKEYS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
