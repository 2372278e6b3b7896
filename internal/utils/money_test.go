package utils

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		in     float64
		places int
		want   float64
	}{
		{"two places", 648.004, 2, 648.0},
		{"half up", 0.125, 2, 0.13},
		{"half away from zero negative", -0.125, 2, -0.13},
		{"binary below midpoint", 2.675, 2, 2.68},
		{"whole rupees", 12345.5, 0, 12346},
		{"already rounded", 88.45, 2, 88.45},
		{"zero", 0, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round(tt.in, tt.places); got != tt.want {
				t.Errorf("Round(%v, %d): expected %v, got %v", tt.in, tt.places, tt.want, got)
			}
		})
	}

	if !math.IsNaN(Round(math.NaN(), 2)) {
		t.Error("Expected NaN to pass through")
	}
	if !math.IsInf(Round(math.Inf(1), 2), 1) {
		t.Error("Expected +Inf to pass through")
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount float64
		places int
		want   string
	}{
		{0, 2, "₹0.00"},
		{999, 0, "₹999"},
		{1000, 0, "₹1,000"},
		{123456, 2, "₹1,23,456.00"},
		{12345678.9, 2, "₹1,23,45,678.90"},
		{-1500.5, 2, "-₹1,500.50"},
	}

	for _, tt := range tests {
		if got := FormatINR(tt.amount, tt.places); got != tt.want {
			t.Errorf("FormatINR(%v): expected %q, got %q", tt.amount, tt.want, got)
		}
	}
}

func TestFormatCompactINR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{6.48e11, "₹64,800.00 Cr"},
		{250000, "₹2.50 L"},
		{3500, "₹3.50 K"},
		{42, "₹42.00"},
	}

	for _, tt := range tests {
		if got := FormatCompactINR(tt.amount); got != tt.want {
			t.Errorf("FormatCompactINR(%v): expected %q, got %q", tt.amount, tt.want, got)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(12.345); got != "+12.35%" {
		t.Errorf("Expected +12.35%%, got %s", got)
	}
	if got := FormatPercent(-3); got != "-3.00%" {
		t.Errorf("Expected -3.00%%, got %s", got)
	}
	if got := FormatPercentPtr(nil); got != "n/a" {
		t.Errorf("Expected n/a, got %s", got)
	}
	if got := FormatShare(25); got != "25.00%" {
		t.Errorf("Expected 25.00%%, got %s", got)
	}
	if got := FormatBillions(648); got != "₹648.00B" {
		t.Errorf("Expected ₹648.00B, got %s", got)
	}
}
