package models

import (
	"fmt"
	"time"
)

// MonthlyRecord is one calendar month's market-wide card spending snapshot.
type MonthlyRecord struct {
	// Month-end date; strictly increasing across a sequence
	Date    time.Time `db:"date" json:"date" yaml:"date"`
	Year    int       `db:"year" json:"year" yaml:"year"`
	Month   int       `db:"month" json:"month" yaml:"month"`
	Quarter string    `db:"quarter" json:"quarter" yaml:"quarter"`

	ActiveCardsMillions     float64 `db:"active_cards_millions" json:"active_cards_millions" yaml:"active_cards_millions"`
	AvgMonthlySpendINR      float64 `db:"avg_monthly_spend_inr" json:"avg_monthly_spend_inr" yaml:"avg_monthly_spend_inr"`
	SeasonalFactor          float64 `db:"seasonal_factor" json:"seasonal_factor" yaml:"seasonal_factor"`
	TotalSpendingBillionINR float64 `db:"total_spending_billion_inr" json:"total_spending_billion_inr" yaml:"total_spending_billion_inr"`

	// Growth percentages; nil when not enough history exists
	YoYGrowthSpending     *float64 `db:"yoy_growth_spending" json:"yoy_growth_spending" yaml:"yoy_growth_spending"`
	MoMGrowthSpending     *float64 `db:"mom_growth_spending" json:"mom_growth_spending" yaml:"mom_growth_spending"`
	CardsGrowthYoY        *float64 `db:"cards_growth_yoy" json:"cards_growth_yoy" yaml:"cards_growth_yoy"`
	SpendPerCardGrowthYoY *float64 `db:"spend_per_card_growth_yoy" json:"spend_per_card_growth_yoy" yaml:"spend_per_card_growth_yoy"`
}

// MonthlyColumns is the persisted column order for monthly records.
var MonthlyColumns = []string{
	"Date",
	"Year",
	"Month",
	"Quarter",
	"Active_Cards_Millions",
	"Avg_Monthly_Spend_INR",
	"Seasonal_Factor",
	"Total_Spending_Billion_INR",
	"YoY_Growth_Spending",
	"MoM_Growth_Spending",
	"Cards_Growth_YoY",
	"Spend_Per_Card_Growth_YoY",
}

// NewMonthlyRecord fills the calendar fields from a date.
func NewMonthlyRecord(date time.Time) MonthlyRecord {
	return MonthlyRecord{
		Date:    date,
		Year:    date.Year(),
		Month:   int(date.Month()),
		Quarter: QuarterOf(int(date.Month())),
	}
}

// QuarterOf returns "Q1".."Q4" for a calendar month.
func QuarterOf(month int) string {
	return fmt.Sprintf("Q%d", (month-1)/3+1)
}

// MonthKey returns a stable integer identifying the calendar month.
func MonthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
