package analysis

import (
	"fmt"
	"time"

	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/models"
)

// Growth bands for the headline insight, in percent year over year.
const (
	strongGrowthPct  = 20
	healthyGrowthPct = 10
)

// MonthPoint is a snapshot of one monthly row.
type MonthPoint struct {
	Date          string   `yaml:"date"`
	TotalSpending float64  `yaml:"total_spending_billion_inr"`
	ActiveCards   float64  `yaml:"active_cards_millions"`
	AvgSpend      float64  `yaml:"avg_monthly_spend_inr"`
	YoYGrowth     *float64 `yaml:"yoy_growth_pct"`
	MoMGrowth     *float64 `yaml:"mom_growth_pct"`
}

func pointOf(r models.MonthlyRecord) MonthPoint {
	return MonthPoint{
		Date:          r.Date.Format(generator.DateLayout),
		TotalSpending: r.TotalSpendingBillionINR,
		ActiveCards:   r.ActiveCardsMillions,
		AvgSpend:      r.AvgMonthlySpendINR,
		YoYGrowth:     r.YoYGrowthSpending,
		MoMGrowth:     r.MoMGrowthSpending,
	}
}

// KPIs are the headline numbers for one focus year.
type KPIs struct {
	Year          int         `yaml:"year"`
	Months        int         `yaml:"months"`
	Latest        MonthPoint  `yaml:"latest"`
	YearTotal     float64     `yaml:"year_total_billion_inr"`
	Peak          MonthPoint  `yaml:"peak"`
	Low           MonthPoint  `yaml:"low"`
	AvgYoYGrowth  *float64    `yaml:"avg_yoy_growth_pct"`
	AvgMoMGrowth  *float64    `yaml:"avg_mom_growth_pct"`
	TopCategories []Breakdown `yaml:"top_categories,omitempty"`
	TopCities     []Breakdown `yaml:"top_cities,omitempty"`
}

// ComputeKPIs summarizes the focus year. Year 0 picks the latest year with
// all twelve months, or the latest year when none is complete. The latest
// month is always the last row of the dataset.
func ComputeKPIs(monthly []models.MonthlyRecord, detailed []models.DetailedRecord, year, top int, order *ordering) (*KPIs, error) {
	if len(monthly) == 0 {
		return nil, ErrEmptyDataset
	}
	if year == 0 {
		year = focusYear(monthly)
	}

	var rows []models.MonthlyRecord
	for _, r := range monthly {
		if r.Year == year {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no monthly rows for %d", ErrInsufficientData, year)
	}

	k := &KPIs{
		Year:   year,
		Months: len(rows),
		Latest: pointOf(monthly[len(monthly)-1]),
	}
	peak, low := rows[0], rows[0]
	var yoy, mom []*float64
	for _, r := range rows {
		k.YearTotal += r.TotalSpendingBillionINR
		if r.TotalSpendingBillionINR > peak.TotalSpendingBillionINR {
			peak = r
		}
		if r.TotalSpendingBillionINR < low.TotalSpendingBillionINR {
			low = r
		}
		yoy = append(yoy, r.YoYGrowthSpending)
		mom = append(mom, r.MoMGrowthSpending)
	}
	k.Peak, k.Low = pointOf(peak), pointOf(low)
	k.AvgYoYGrowth = meanOf(yoy)
	k.AvgMoMGrowth = meanOf(mom)

	var inYear []models.DetailedRecord
	for _, r := range detailed {
		if r.Year == year {
			inYear = append(inYear, r)
		}
	}
	if len(inYear) > 0 {
		k.TopCategories = topN(breakdown(inYear, byCategory, "category", order), top)
		k.TopCities = topN(breakdown(inYear, byCity, "city", order), top)
	}
	return k, nil
}

func focusYear(monthly []models.MonthlyRecord) int {
	counts := make(map[int]int)
	for _, r := range monthly {
		counts[r.Year]++
	}
	for i := len(monthly) - 1; i >= 0; i-- {
		if y := monthly[i].Year; counts[y] == 12 {
			return y
		}
	}
	return monthly[len(monthly)-1].Year
}

// Insights turns the dataset into short plain-language findings. Findings
// that need the detailed table are left out when it is empty.
func Insights(monthly []models.MonthlyRecord, detailed []models.DetailedRecord, order *ordering) []string {
	var out []string

	var latest *float64
	for i := len(monthly) - 1; i >= 0 && latest == nil; i-- {
		latest = monthly[i].YoYGrowthSpending
	}
	if latest != nil {
		switch {
		case *latest > strongGrowthPct:
			out = append(out, fmt.Sprintf("Card spending is growing at double digits (%.1f%% year over year)", *latest))
		case *latest > healthyGrowthPct:
			out = append(out, fmt.Sprintf("Spending growth remains healthy (%.1f%% year over year)", *latest))
		default:
			out = append(out, fmt.Sprintf("Spending growth is stabilizing (%.1f%% year over year)", *latest))
		}
	}

	if len(detailed) > 0 {
		for _, d := range []struct {
			key       dimensionKey
			dimension string
			format    string
		}{
			{byCategory, "category", "%q dominates spending categories (%.1f%% of spend)"},
			{byAge, "age_group", "The %q age group spends the most (%.1f%% of spend)"},
			{byCity, "city", "%q leads in total card spending (%.1f%% of spend)"},
		} {
			if ranked := topN(breakdown(detailed, d.key, d.dimension, order), 1); len(ranked) > 0 {
				out = append(out, fmt.Sprintf(d.format, ranked[0].Name, ranked[0].Share))
			}
		}
	}

	if m := peakMonth(monthly); m != 0 {
		out = append(out, fmt.Sprintf("%s is the peak month for spending", time.Month(m)))
	}
	return out
}
