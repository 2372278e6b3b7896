package patterns

import (
	"fmt"
	"time"
)

// SeasonalTable holds one spending multiplier per calendar month, indexed 0-11.
// Models calendar-driven demand: the festival quarter, the fiscal year end,
// and the monsoon slowdown.
type SeasonalTable [12]float64

// Seasonal multipliers used by the default table.
const (
	FestivalFactor      = 1.3
	FiscalYearEndFactor = 1.15
	MonsoonFactor       = 0.9
	BaselineFactor      = 1.0
)

// NewSeasonalTable creates the default Indian card-spending seasonality.
func NewSeasonalTable() SeasonalTable {
	var st SeasonalTable
	for i := range st {
		st[i] = BaselineFactor
	}

	// Fiscal year closes in March; April carries the spillover
	st[2] = FiscalYearEndFactor // March
	st[3] = FiscalYearEndFactor // April

	// Monsoon
	st[5] = MonsoonFactor // June
	st[6] = MonsoonFactor // July
	st[7] = MonsoonFactor // August

	// Festival season (Diwali, Dussehra, year-end sales)
	st[9] = FestivalFactor  // October
	st[10] = FestivalFactor // November
	st[11] = FestivalFactor // December

	return st
}

// Factor returns the multiplier for a calendar month (1-12).
// Out-of-range months return the baseline.
func (st SeasonalTable) Factor(month int) float64 {
	if month < 1 || month > 12 {
		return BaselineFactor
	}
	return st[month-1]
}

// FactorForDate returns the multiplier for the month containing t.
func (st SeasonalTable) FactorForDate(t time.Time) float64 {
	return st.Factor(int(t.Month()))
}

// Validate checks every month has a positive multiplier.
func (st SeasonalTable) Validate() []string {
	var errs []string
	for i, f := range st {
		if f <= 0 {
			errs = append(errs, fmt.Sprintf("seasonal factor for %s must be positive (got %g)", time.Month(i+1), f))
		}
	}
	return errs
}
