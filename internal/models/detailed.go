package models

import "time"

// DetailedRecord is one month x category x city x age group x gender x
// card type allocation derived from a MonthlyRecord.
type DetailedRecord struct {
	Date  time.Time `db:"date" json:"date" yaml:"date"`
	Year  int       `db:"year" json:"year" yaml:"year"`
	Month int       `db:"month" json:"month" yaml:"month"`

	Category string `db:"category" json:"category" yaml:"category"`
	City     string `db:"city" json:"city" yaml:"city"`
	AgeGroup string `db:"age_group" json:"age_group" yaml:"age_group"`
	Gender   string `db:"gender" json:"gender" yaml:"gender"`
	CardType string `db:"card_type" json:"card_type" yaml:"card_type"`

	// Spending in the reporting unit (thousands of rupees)
	SpendingAmountThousandsINR float64 `db:"spending_amount_thousands_inr" json:"spending_amount_thousands_inr" yaml:"spending_amount_thousands_inr"`
	TransactionCount           int64   `db:"transaction_count" json:"transaction_count" yaml:"transaction_count"`
	// Recomputed from the emitted amount and count, not the sampled value
	AvgTransactionAmountINR float64 `db:"avg_transaction_amount_inr" json:"avg_transaction_amount_inr" yaml:"avg_transaction_amount_inr"`
}

// DetailedColumns is the persisted column order for detailed records.
var DetailedColumns = []string{
	"Date",
	"Year",
	"Month",
	"Category",
	"City",
	"Age_Group",
	"Gender",
	"Card_Type",
	"Spending_Amount_Thousands_INR",
	"Transaction_Count",
	"Avg_Transaction_Amount_INR",
}
