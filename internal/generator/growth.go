package generator

import "github.com/willfong/card-spend/internal/models"

// ApplyGrowth fills the four growth columns over a completed, date-ordered
// sequence. Values are percentage changes of the rounded public columns:
// 12 periods back for the year-over-year fields and 1 period for
// month-over-month. Spend per card grows with the average monthly spend
// column. Fields without enough history, or whose base is zero, are set to
// nil.
func ApplyGrowth(records []models.MonthlyRecord) {
	for i := range records {
		rec := &records[i]
		rec.MoMGrowthSpending = pctChange(records, i, 1, totalSpending)
		rec.YoYGrowthSpending = pctChange(records, i, 12, totalSpending)
		rec.CardsGrowthYoY = pctChange(records, i, 12, activeCards)
		rec.SpendPerCardGrowthYoY = pctChange(records, i, 12, spendPerCard)
	}
}

func totalSpending(r models.MonthlyRecord) float64 { return r.TotalSpendingBillionINR }
func activeCards(r models.MonthlyRecord) float64   { return r.ActiveCardsMillions }
func spendPerCard(r models.MonthlyRecord) float64  { return r.AvgMonthlySpendINR }

// pctChange returns (cur/prev - 1) * 100 for the value `periods` rows back.
func pctChange(records []models.MonthlyRecord, i, periods int, value func(models.MonthlyRecord) float64) *float64 {
	if i < periods {
		return nil
	}
	prev := value(records[i-periods])
	if prev == 0 {
		return nil
	}
	pct := (value(records[i])/prev - 1) * 100
	return &pct
}
