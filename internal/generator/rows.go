package generator

import (
	"strconv"
	"time"

	"github.com/willfong/card-spend/internal/models"
)

// DateLayout is the persisted date format.
const DateLayout = "2006-01-02"

// FormatDate formats a date for CSV output.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatFloat formats a float with the fewest digits that round-trip.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatFloatPtr returns an empty cell for nil.
func FormatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return FormatFloat(*f)
}

// MonthlyRow encodes a record in models.MonthlyColumns order.
func MonthlyRow(r models.MonthlyRecord) []string {
	return []string{
		FormatDate(r.Date),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		r.Quarter,
		FormatFloat(r.ActiveCardsMillions),
		FormatFloat(r.AvgMonthlySpendINR),
		FormatFloat(r.SeasonalFactor),
		FormatFloat(r.TotalSpendingBillionINR),
		FormatFloatPtr(r.YoYGrowthSpending),
		FormatFloatPtr(r.MoMGrowthSpending),
		FormatFloatPtr(r.CardsGrowthYoY),
		FormatFloatPtr(r.SpendPerCardGrowthYoY),
	}
}

// DetailedRow encodes a record in models.DetailedColumns order.
func DetailedRow(r models.DetailedRecord) []string {
	return []string{
		FormatDate(r.Date),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		r.Category,
		r.City,
		r.AgeGroup,
		r.Gender,
		r.CardType,
		FormatFloat(r.SpendingAmountThousandsINR),
		strconv.FormatInt(r.TransactionCount, 10),
		FormatFloat(r.AvgTransactionAmountINR),
	}
}
