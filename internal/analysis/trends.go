package analysis

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/willfong/card-spend/internal/models"
)

// MonthSeason is the average behaviour of one calendar month.
type MonthSeason struct {
	Month          int     `yaml:"month"`
	Name           string  `yaml:"name"`
	Observations   int     `yaml:"observations"`
	MeanSpending   float64 `yaml:"mean_spending_billion_inr"`
	SeasonalFactor float64 `yaml:"seasonal_factor"`
	// Index is mean spending relative to the mean over all months
	Index float64 `yaml:"index"`
}

// YearTotal aggregates one calendar year. Partial years are reported as is.
type YearTotal struct {
	Year          int      `yaml:"year"`
	Months        int      `yaml:"months"`
	TotalSpending float64  `yaml:"total_spending_billion_inr"`
	AvgCards      float64  `yaml:"avg_active_cards_millions"`
	AvgSpend      float64  `yaml:"avg_monthly_spend_inr"`
	Growth        *float64 `yaml:"yoy_growth_pct"`
}

// Trends holds seasonality and year-over-year movement.
type Trends struct {
	Seasonality     []MonthSeason `yaml:"seasonality"`
	Yearly          []YearTotal   `yaml:"yearly"`
	MeanYoYGrowth   *float64      `yaml:"mean_yoy_growth_pct"`
	MeanMoMGrowth   *float64      `yaml:"mean_mom_growth_pct"`
	MeanCardsGrowth *float64      `yaml:"mean_cards_growth_yoy_pct"`
}

// AnalyzeTrends computes per-month seasonality and yearly totals. Calendar
// months absent from the data are omitted.
func AnalyzeTrends(monthly []models.MonthlyRecord) *Trends {
	t := &Trends{
		Seasonality: seasonality(monthly),
		Yearly:      yearlyTotals(monthly),
	}

	var yoy, mom, cards []*float64
	for _, r := range monthly {
		yoy = append(yoy, r.YoYGrowthSpending)
		mom = append(mom, r.MoMGrowthSpending)
		cards = append(cards, r.CardsGrowthYoY)
	}
	t.MeanYoYGrowth = meanOf(yoy)
	t.MeanMoMGrowth = meanOf(mom)
	t.MeanCardsGrowth = meanOf(cards)
	return t
}

func seasonality(monthly []models.MonthlyRecord) []MonthSeason {
	var spend, factors [12][]float64
	all := make([]float64, 0, len(monthly))
	for _, r := range monthly {
		spend[r.Month-1] = append(spend[r.Month-1], r.TotalSpendingBillionINR)
		factors[r.Month-1] = append(factors[r.Month-1], r.SeasonalFactor)
		all = append(all, r.TotalSpendingBillionINR)
	}
	if len(all) == 0 {
		return nil
	}
	overall := stat.Mean(all, nil)

	var out []MonthSeason
	for m := range 12 {
		if len(spend[m]) == 0 {
			continue
		}
		s := MonthSeason{
			Month:          m + 1,
			Name:           time.Month(m + 1).String(),
			Observations:   len(spend[m]),
			MeanSpending:   stat.Mean(spend[m], nil),
			SeasonalFactor: stat.Mean(factors[m], nil),
		}
		if overall != 0 {
			s.Index = s.MeanSpending / overall
		}
		out = append(out, s)
	}
	return out
}

// yearlyTotals assumes monthly is in date order.
func yearlyTotals(monthly []models.MonthlyRecord) []YearTotal {
	var out []YearTotal
	var cards, spend []float64
	flush := func() {
		y := &out[len(out)-1]
		y.AvgCards = stat.Mean(cards, nil)
		y.AvgSpend = stat.Mean(spend, nil)
		cards, spend = cards[:0], spend[:0]
	}

	for _, r := range monthly {
		if len(out) == 0 || out[len(out)-1].Year != r.Year {
			if len(out) > 0 {
				flush()
			}
			out = append(out, YearTotal{Year: r.Year})
		}
		y := &out[len(out)-1]
		y.Months++
		y.TotalSpending += r.TotalSpendingBillionINR
		cards = append(cards, r.ActiveCardsMillions)
		spend = append(spend, r.AvgMonthlySpendINR)
	}
	if len(out) == 0 {
		return nil
	}
	flush()

	for i := 1; i < len(out); i++ {
		out[i].Growth = pctChange(out[i-1].TotalSpending, out[i].TotalSpending)
	}
	return out
}

// peakMonth is the calendar month with the highest mean spending, 0 when
// monthly is empty.
func peakMonth(monthly []models.MonthlyRecord) int {
	best, month := 0.0, 0
	for _, s := range seasonality(monthly) {
		if month == 0 || s.MeanSpending > best {
			best, month = s.MeanSpending, s.Month
		}
	}
	return month
}
