package analysis

import (
	"math"

	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/models"
)

// Period is the covered date range.
type Period struct {
	Start  string  `yaml:"start"`
	End    string  `yaml:"end"`
	Months int     `yaml:"months"`
	Years  float64 `yaml:"years"`
}

// Summary is the statistical overview of the monthly table.
type Summary struct {
	Period          Period   `yaml:"period"`
	TotalSpending   Stats    `yaml:"total_spending_billion_inr"`
	ActiveCards     Stats    `yaml:"active_cards_millions"`
	AvgMonthlySpend Stats    `yaml:"avg_monthly_spend_inr"`
	TotalGrowth     *float64 `yaml:"total_growth_pct"`
	CAGR            *float64 `yaml:"cagr_pct"`
	CardsCAGR       *float64 `yaml:"cards_cagr_pct"`
	DetailedRecords int      `yaml:"detailed_records"`
}

// Summarize describes the monthly columns and the growth between the first
// and last month. CAGR uses the elapsed time in years of 365.25 days.
func Summarize(monthly []models.MonthlyRecord, detailedRecords int) *Summary {
	if len(monthly) == 0 {
		return &Summary{DetailedRecords: detailedRecords}
	}
	first, last := monthly[0], monthly[len(monthly)-1]
	years := last.Date.Sub(first.Date).Hours() / 24 / 365.25

	return &Summary{
		Period: Period{
			Start:  first.Date.Format(generator.DateLayout),
			End:    last.Date.Format(generator.DateLayout),
			Months: len(monthly),
			Years:  years,
		},
		TotalSpending:   Describe(column(monthly, func(r models.MonthlyRecord) float64 { return r.TotalSpendingBillionINR })),
		ActiveCards:     Describe(column(monthly, func(r models.MonthlyRecord) float64 { return r.ActiveCardsMillions })),
		AvgMonthlySpend: Describe(column(monthly, func(r models.MonthlyRecord) float64 { return r.AvgMonthlySpendINR })),
		TotalGrowth:     pctChange(first.TotalSpendingBillionINR, last.TotalSpendingBillionINR),
		CAGR:            cagr(first.TotalSpendingBillionINR, last.TotalSpendingBillionINR, years),
		CardsCAGR:       cagr(first.ActiveCardsMillions, last.ActiveCardsMillions, years),
		DetailedRecords: detailedRecords,
	}
}

// cagr is the compound annual growth rate in percent, nil when undefined.
func cagr(from, to, years float64) *float64 {
	if from <= 0 || to < 0 || years <= 0 {
		return nil
	}
	v := (math.Pow(to/from, 1/years) - 1) * 100
	return &v
}
