// Package ui provides styled terminal output for the spendgen CLI.
// It uses the Charm.sh ecosystem for styling with automatic fallback to
// plain text for non-TTY environments.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// UI holds the terminal state and provides styled output methods.
type UI struct {
	Out     io.Writer
	IsTTY   bool
	Width   int
	NoColor bool
}

// KV represents a key-value pair for summary displays.
type KV struct {
	Key   string
	Value string
}

// noColorEnv is the standard environment variable to disable colors.
var noColorEnv = os.Getenv("NO_COLOR") != ""

// New creates a UI on stdout with TTY detection.
func New() *UI {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	width := 80
	if isTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	return &UI{
		Out:     os.Stdout,
		IsTTY:   isTTY,
		Width:   width,
		NoColor: noColorEnv,
	}
}

// NewPlain creates an unstyled UI writing to w.
func NewPlain(w io.Writer) *UI {
	return &UI{Out: w, Width: 80, NoColor: true}
}

// SetNoColor disables colors and animations.
func (u *UI) SetNoColor(noColor bool) {
	u.NoColor = noColor
}

// shouldStyle returns true if we should use styled output.
func (u *UI) shouldStyle() bool {
	return u.IsTTY && !u.NoColor
}

// Println writes a line to the UI's output.
func (u *UI) Println(a ...any) {
	fmt.Fprintln(u.Out, a...)
}

// Header renders a bordered header box.
func (u *UI) Header(title string) string {
	if !u.shouldStyle() {
		return fmt.Sprintf("=== %s ===", title)
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(0, 2)

	return style.Render(title)
}

// KeyValue renders a styled key-value pair.
func (u *UI) KeyValue(key, value string) string {
	if !u.shouldStyle() {
		return fmt.Sprintf("%-12s %s", key+":", value)
	}

	keyStyle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Width(14)
	valueStyle := lipgloss.NewStyle().
		Bold(true)

	return "  " + keyStyle.Render(key) + " " + valueStyle.Render(value)
}

// Success renders a success message with a green checkmark.
func (u *UI) Success(msg string) string {
	if !u.shouldStyle() {
		return "[OK] " + msg
	}
	return StyleSuccess.Render(SymbolSuccess+" ") + msg
}

// Error renders an error message with a red X.
func (u *UI) Error(msg string) string {
	if !u.shouldStyle() {
		return "[FAILED] " + msg
	}
	return StyleError.Render(SymbolError + " " + msg)
}

// Warning renders a warning message.
func (u *UI) Warning(msg string) string {
	if !u.shouldStyle() {
		return "[WARN] " + msg
	}
	return StyleWarning.Render(SymbolWarning + " " + msg)
}

// Muted renders dim text.
func (u *UI) Muted(msg string) string {
	if !u.shouldStyle() {
		return msg
	}
	return StyleMuted.Render(msg)
}

// SummaryBox renders a bordered summary section. A "Status" item is
// colored by whether it reads success or failure.
func (u *UI) SummaryBox(title string, items []KV) string {
	maxKeyWidth := 0
	for _, item := range items {
		maxKeyWidth = max(maxKeyWidth, len(item.Key))
	}

	if !u.shouldStyle() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "\n=== %s ===\n", title)
		for _, item := range items {
			fmt.Fprintf(&sb, "%-*s %s\n", maxKeyWidth+1, item.Key+":", item.Value)
		}
		return sb.String()
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted).Width(maxKeyWidth + 2)
	valueStyle := lipgloss.NewStyle().Bold(true)

	var lines []string
	for _, item := range items {
		value := item.Value
		status := strings.ToLower(value)
		switch {
		case item.Key == "Status" && strings.Contains(status, "success"):
			value = StyleSuccess.Render(SymbolSuccess + " " + value)
		case item.Key == "Status" && strings.Contains(status, "fail"):
			value = StyleError.Render(SymbolError + " " + value)
		default:
			value = valueStyle.Render(value)
		}
		lines = append(lines, "  "+keyStyle.Render(item.Key)+" "+value)
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorSuccess)
	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorSuccess).
		Padding(0, 1)

	return "\n" + titleStyle.Render("  "+title) + "\n" + boxStyle.Render(strings.Join(lines, "\n"))
}

// Status represents the status of an operation.
type Status int

const (
	StatusNone Status = iota
	StatusSuccess
	StatusError
)

// StatusLine renders a name and value with a status symbol.
func (u *UI) StatusLine(name, value string, status Status) string {
	if !u.shouldStyle() {
		prefix := ""
		if status == StatusError {
			prefix = "FAILED: "
		}
		return fmt.Sprintf("  %-20s %s%s", name+":", prefix, value)
	}

	nameStyle := lipgloss.NewStyle().Width(20)
	symbol, styled := " ", value
	switch status {
	case StatusSuccess:
		symbol = StyleSuccess.Render(SymbolSuccess)
	case StatusError:
		symbol = StyleError.Render(SymbolError)
		styled = StyleError.Render(value)
	}

	return fmt.Sprintf("  %s %s %s", symbol, nameStyle.Render(name), styled)
}

// Section prints a section heading.
func (u *UI) Section(title string) {
	if !u.shouldStyle() {
		fmt.Fprintf(u.Out, "\n%s\n", title)
		return
	}
	fmt.Fprintln(u.Out)
	fmt.Fprintln(u.Out, lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Render(title))
}
