package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RupeeSymbol is the display symbol for Indian rupee amounts.
const RupeeSymbol = "₹"

// Round rounds f to the given number of decimal places, half away from zero,
// on the shortest decimal representation of f. This is the single rounding
// policy used for every persisted value, so 2.675 rounds to 2.68 even though
// its binary value sits slightly below the midpoint.
// NaN and infinities are returned unchanged.
func Round(f float64, places int) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	r, _ := decimal.NewFromFloat(f).Round(int32(places)).Float64()
	return r
}

// FormatINR formats an amount in rupees with Indian digit grouping
// (12,34,56,789.00) and the rupee symbol.
func FormatINR(amount float64, places int) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}

	s := decimal.NewFromFloat(amount).StringFixed(int32(places))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx:]
	}

	out := RupeeSymbol + groupIndian(intPart) + fracPart
	if neg {
		return "-" + out
	}
	return out
}

// groupIndian inserts separators for the lakh/crore system: the last three
// digits form one group, every group before that has two digits.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// FormatCompactINR formats a rupee amount using crore (Cr), lakh (L) and
// thousand (K) suffixes, e.g. 6.48e11 -> "₹64,800.00 Cr".
func FormatCompactINR(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e7:
		return FormatINR(amount/1e7, 2) + " Cr"
	case abs >= 1e5:
		return FormatINR(amount/1e5, 2) + " L"
	case abs >= 1e3:
		return FormatINR(amount/1e3, 2) + " K"
	default:
		return FormatINR(amount, 2)
	}
}

// FormatBillions formats a value already expressed in billions of rupees.
func FormatBillions(billions float64) string {
	return FormatINR(billions, 2) + "B"
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", Round(pct, 2))
}

// FormatPercentPtr formats an optional percentage; nil renders as "n/a".
func FormatPercentPtr(pct *float64) string {
	if pct == nil {
		return "n/a"
	}
	return FormatPercent(*pct)
}

// FormatShare formats a share already expressed in percent, without sign.
func FormatShare(pct float64) string {
	return fmt.Sprintf("%.2f%%", Round(pct, 2))
}
