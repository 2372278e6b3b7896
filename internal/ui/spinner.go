package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Spinner shows an animated line for an operation of unknown length and
// ends it with a status symbol and the time taken.
type Spinner struct {
	ui    *UI
	label string
	start time.Time

	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex // guards label and started
}

// Spinner animation frames (braille pattern).
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Operations shorter than this finish without a duration suffix.
const spinnerShowElapsed = time.Second

// NewSpinner creates a new animated spinner.
func (u *UI) NewSpinner(label string) *Spinner {
	return &Spinner{
		ui:    u,
		label: label,
		done:  make(chan struct{}),
	}
}

// Start begins the spinner animation and its clock.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.start = time.Now()
	label := s.label
	s.mu.Unlock()

	if !s.ui.shouldStyle() {
		// Non-TTY: just print the message once
		fmt.Fprintf(s.ui.Out, "%s...", label)
		return
	}

	s.wg.Add(1)
	go s.animate()
}

func (s *Spinner) animate() {
	defer s.wg.Done()
	frame := 0
	spinnerStyle := lipgloss.NewStyle().Foreground(ColorPrimary)

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			label := s.label
			s.mu.Unlock()

			// \033[K clears what a longer previous label left behind
			fmt.Fprintf(s.ui.Out, "\r%s %s... %s\033[K",
				spinnerStyle.Render(spinnerFrames[frame]),
				label,
				StyleMuted.Render(s.elapsed()),
			)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// SetLabel replaces the text shown next to the animation. In plain mode the
// first label has already been printed and later ones are not shown.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	s.label = label
	s.mu.Unlock()
}

// Success stops the spinner and shows a success message.
func (s *Spinner) Success(msg string) {
	s.finish(StyleSuccess.Render(SymbolSuccess), lipgloss.NewStyle(), msg)
}

// Error stops the spinner and shows an error message.
func (s *Spinner) Error(msg string) {
	s.finish(StyleError.Render(SymbolError), StyleError, msg)
}

func (s *Spinner) finish(symbol string, style lipgloss.Style, msg string) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	label := s.label
	s.mu.Unlock()

	select {
	case <-s.done:
		// Already stopped
		return
	default:
		close(s.done)
	}
	s.wg.Wait()

	if d := time.Since(s.start); d >= spinnerShowElapsed {
		msg += " (" + FormatDuration(d) + ")"
	}

	if !s.ui.shouldStyle() {
		fmt.Fprintf(s.ui.Out, " %s\n", msg)
		return
	}
	fmt.Fprintf(s.ui.Out, "\r\033[K%s %s... %s\n", symbol, label, style.Render(msg))
}

// elapsed is the running time once it is long enough to be worth showing.
func (s *Spinner) elapsed() string {
	d := time.Since(s.start)
	if d < spinnerShowElapsed {
		return ""
	}
	return FormatDuration(d.Truncate(time.Second))
}
