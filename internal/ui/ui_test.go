package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPlainTable(t *testing.T) {
	u := NewPlain(&bytes.Buffer{})
	got := u.Table(
		[]Column{{Title: "City"}, {Title: "Share", Right: true}},
		[][]string{{"Mumbai", "20.0%"}, {"Delhi NCR", "8.5%"}},
	)

	want := "" +
		"City       Share\n" +
		"---------  -----\n" +
		"Mumbai     20.0%\n" +
		"Delhi NCR   8.5%\n"
	if got != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestPlainTableShortRow(t *testing.T) {
	u := NewPlain(&bytes.Buffer{})
	got := u.Table([]Column{{Title: "A"}, {Title: "B"}}, [][]string{{"x"}})
	if !strings.HasSuffix(got, "x\n") {
		t.Errorf("Expected padded short row without trailing spaces, got %q", got)
	}
}

func TestPlainMessages(t *testing.T) {
	u := NewPlain(&bytes.Buffer{})

	tests := []struct {
		got  string
		want string
	}{
		{u.Header("Card Spending Generator"), "=== Card Spending Generator ==="},
		{u.KeyValue("Seed", "42"), "Seed:        42"},
		{u.Success("done"), "[OK] done"},
		{u.Error("boom"), "[FAILED] boom"},
		{u.Warning("careful"), "[WARN] careful"},
		{u.StatusLine("monthly_spending", "79 rows", StatusError), "  monthly_spending:    FAILED: 79 rows"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestPlainSummaryBox(t *testing.T) {
	u := NewPlain(&bytes.Buffer{})
	got := u.SummaryBox("Generation Summary", []KV{
		{Key: "Rows", Value: "79"},
		{Key: "Status", Value: "Success"},
	})
	want := "\n=== Generation Summary ===\nRows:   79\nStatus: Success\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestProgressBarPlain(t *testing.T) {
	var buf bytes.Buffer
	u := NewPlain(&buf)

	bar := u.NewProgressBar("Expanding", 8)
	update := bar.Callback()
	for i := 1; i <= 8; i++ {
		update(i, 8)
	}
	bar.Complete()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// 25, 50, 75, 100 percent plus the completion line
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Expanding: 25% (2/8)" {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[4], "Expanding: done in ") {
		t.Errorf("Unexpected last line %q", lines[4])
	}

	buf.Reset()
	bar.Fail(errors.New("disk full"))
	if buf.String() != "Expanding: FAILED: disk full\n" {
		t.Errorf("Unexpected failure line %q", buf.String())
	}
}

func TestPrintLoadResult(t *testing.T) {
	var buf bytes.Buffer
	u := NewPlain(&buf)

	u.PrintLoadResult("detailed_spending", 1_234_567, 1500*time.Millisecond, 3, nil)
	if got := buf.String(); got != "  detailed_spending:   1.2M rows in 1.5s (3 files)\n" {
		t.Errorf("Unexpected line %q", got)
	}

	buf.Reset()
	u.PrintLoadResult("monthly_spending", 0, 0, 1, errors.New("access denied"))
	if !strings.Contains(buf.String(), "FAILED") || !strings.Contains(buf.String(), "access denied") {
		t.Errorf("Unexpected failure output %q", buf.String())
	}
}

func TestFormatters(t *testing.T) {
	durations := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.5s"},
		{95 * time.Second, "1m35s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range durations {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, expected %q", tt.d, got, tt.want)
		}
	}

	if got := FormatCount(999); got != "999" {
		t.Errorf("Expected 999, got %s", got)
	}
	if got := FormatCount(64_800); got != "64.8K" {
		t.Errorf("Expected 64.8K, got %s", got)
	}
	if got := FormatBytes(1536); got != "1.5 KB" {
		t.Errorf("Expected 1.5 KB, got %s", got)
	}
}

func TestPlainSpinner(t *testing.T) {
	var buf bytes.Buffer
	u := NewPlain(&buf)

	s := u.NewSpinner("Reading dataset")
	s.Start()
	s.SetLabel("Analysing")
	s.Success("done")
	s.Error("ignored after finish")

	if got := buf.String(); got != "Reading dataset... done\n" {
		t.Errorf("Expected one plain status line, got %q", got)
	}
}

func TestSpinnerNotStarted(t *testing.T) {
	var buf bytes.Buffer
	u := NewPlain(&buf)
	u.NewSpinner("idle").Success("done")
	if buf.Len() != 0 {
		t.Errorf("Expected no output from an unstarted spinner, got %q", buf.String())
	}
}
