package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatCount formats a row count with K/M suffix.
func FormatCount(rows int64) string {
	if rows >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(rows)/1_000_000)
	}
	if rows >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(rows)/1_000)
	}
	return fmt.Sprintf("%d", rows)
}

// FormatBytes formats bytes into human readable form.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// PrintLoadResult prints the outcome of loading one table.
func (u *UI) PrintLoadResult(name string, rows int64, duration time.Duration, files int, err error) {
	detail := fmt.Sprintf("%s rows in %s", FormatCount(rows), FormatDuration(duration))
	if files > 1 {
		detail += fmt.Sprintf(" (%d files)", files)
	}

	if !u.shouldStyle() {
		if err != nil {
			fmt.Fprintf(u.Out, "  %-20s FAILED\n", name+":")
			fmt.Fprintf(u.Out, "    Error: %v\n", err)
			return
		}
		fmt.Fprintf(u.Out, "  %-20s %s\n", name+":", detail)
		return
	}

	nameStyle := lipgloss.NewStyle().Width(20)
	if err != nil {
		fmt.Fprintf(u.Out, "  %s %s %s\n", StyleError.Render(SymbolError), nameStyle.Render(name), StyleError.Render("FAILED"))
		fmt.Fprintf(u.Out, "    %s\n", StyleError.Render(err.Error()))
		return
	}
	fmt.Fprintf(u.Out, "  %s %s %s\n", StyleSuccess.Render(SymbolSuccess), nameStyle.Render(name), detail)
}

// PrintSkipped prints a skipped item.
func (u *UI) PrintSkipped(name, reason string) {
	if !u.shouldStyle() {
		fmt.Fprintf(u.Out, "  %-20s SKIPPED (%s)\n", name+":", reason)
		return
	}

	nameStyle := lipgloss.NewStyle().Width(20)
	fmt.Fprintf(u.Out, "  %s %s %s\n",
		StyleWarning.Render(SymbolWarning),
		nameStyle.Render(name),
		StyleMuted.Render("skipped: "+reason),
	)
}

// DebugBox prints a boxed block, used for commands to rerun by hand.
func (u *UI) DebugBox(title, content string) {
	if !u.shouldStyle() {
		fmt.Fprintln(u.Out, "\n    "+title)
		fmt.Fprintln(u.Out, "    "+strings.Repeat("─", 45))
		for _, line := range strings.Split(content, "\n") {
			fmt.Fprintln(u.Out, "    "+line)
		}
		fmt.Fprintln(u.Out, "    "+strings.Repeat("─", 45))
		return
	}

	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1)

	fmt.Fprintln(u.Out)
	fmt.Fprintln(u.Out, "    "+StyleMuted.Render(title))
	fmt.Fprintln(u.Out, boxStyle.Render(content))
}
