package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// plainStep is how often, in percent, a non-TTY progress bar prints a line.
const plainStep = 25

// ProgressBar provides a progress bar for determinate operations.
type ProgressBar struct {
	ui      *UI
	bar     progress.Model
	label   string
	total   int64
	current int64
	start   time.Time
	mu      sync.Mutex
	// last percentage step printed in plain mode; 0% is never printed
	printed int64
}

// NewProgressBar creates a new progress bar.
func (u *UI) NewProgressBar(label string, total int64) *ProgressBar {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return &ProgressBar{
		ui:    u,
		bar:   bar,
		label: label,
		total: total,
		start: time.Now(),
	}
}

// Update sets the current progress value. Safe for concurrent use.
func (p *ProgressBar) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.render()
}

// Callback adapts the bar to a done/total progress callback.
func (p *ProgressBar) Callback() func(done, total int) {
	return func(done, total int) {
		p.mu.Lock()
		p.total = int64(total)
		p.mu.Unlock()
		p.Update(int64(done))
	}
}

// render draws the bar. Caller holds p.mu.
func (p *ProgressBar) render() {
	pct := 0.0
	if p.total > 0 {
		pct = min(float64(p.current)/float64(p.total), 1)
	}

	if !p.ui.shouldStyle() {
		step := int64(pct*100) / plainStep * plainStep
		if step > p.printed {
			p.printed = step
			fmt.Fprintf(p.ui.Out, "%s: %d%% (%d/%d)\n", p.label, step, p.current, p.total)
		}
		return
	}

	labelStyle := lipgloss.NewStyle().Width(18)
	countStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(p.ui.Out, "\r\033[K  %s %s %s",
		labelStyle.Render(p.label),
		p.bar.ViewAs(pct),
		countStyle.Render(fmt.Sprintf("%d/%d", p.current, p.total)),
	)
}

// Complete finishes the progress bar with a success indicator.
func (p *ProgressBar) Complete() {
	p.mu.Lock()
	total := p.total
	elapsed := time.Since(p.start)
	p.mu.Unlock()

	if !p.ui.shouldStyle() {
		fmt.Fprintf(p.ui.Out, "%s: done in %s\n", p.label, FormatDuration(elapsed))
		return
	}

	labelStyle := lipgloss.NewStyle().Width(18)

	fmt.Fprintf(p.ui.Out, "\r\033[K  %s %s %s %s\n",
		StyleSuccess.Render(SymbolSuccess),
		labelStyle.Render(p.label),
		StyleSuccess.Render(fmt.Sprintf("%d/%d complete", total, total)),
		StyleMuted.Render(FormatDuration(elapsed)),
	)
}

// Fail finishes the progress bar with an error indicator.
func (p *ProgressBar) Fail(err error) {
	if !p.ui.shouldStyle() {
		fmt.Fprintf(p.ui.Out, "%s: FAILED: %v\n", p.label, err)
		return
	}

	labelStyle := lipgloss.NewStyle().Width(18)

	fmt.Fprintf(p.ui.Out, "\r\033[K  %s %s %s\n",
		StyleError.Render(SymbolError),
		labelStyle.Render(p.label),
		StyleError.Render(err.Error()),
	)
}
