package cmd

import (
	"fmt"
	"strings"

	"github.com/willfong/card-spend/internal/analysis"
	"github.com/willfong/card-spend/internal/ui"
	"github.com/willfong/card-spend/internal/utils"
)

func printReport(u *ui.UI, rep *analysis.Report) {
	u.Println()
	u.Println(u.Header("Card Spending Report"))
	u.Println()
	src := rep.Source
	u.Println(u.KeyValue("Input", src.Dir))
	if src.RunID != "" {
		u.Println(u.KeyValue("Run ID", src.RunID))
		u.Println(u.KeyValue("Seed", fmt.Sprintf("%d", src.Seed)))
		u.Println(u.KeyValue("Generated", src.GeneratedAt))
	}
	u.Println(u.KeyValue("Rows", fmt.Sprintf("%d monthly / %d detailed", src.MonthlyRows, src.DetailedRows)))

	if rep.Summary != nil {
		printSummary(u, rep.Summary)
	}
	if rep.Trends != nil {
		printTrends(u, rep.Trends)
	}
	if rep.Categories != nil {
		printCategories(u, rep.Categories)
	}
	if rep.Demographics != nil {
		u.Section("Demographics")
		u.Println(u.Muted("By age group"))
		u.Println(u.Table(breakdownColumns("Age group"), breakdownRows(rep.Demographics.AgeGroups)))
		u.Println(u.Muted("By gender"))
		u.Println(u.Table(breakdownColumns("Gender"), breakdownRows(rep.Demographics.Genders)))
		u.Println(u.Muted("By card type"))
		u.Println(u.Table(breakdownColumns("Card type"), breakdownRows(rep.Demographics.CardTypes)))
	}
	if rep.Geography != nil {
		u.Section("Geography")
		u.Println(u.Table(breakdownColumns("City"), breakdownRows(rep.Geography.Cities)))
	}
	if rep.Segments != nil {
		printSegments(u, rep.Segments)
	}
	if rep.Forecast != nil {
		printForecast(u, rep.Forecast)
	}
	if rep.KPIs != nil {
		printKPIs(u, rep.KPIs, rep.Insights)
	}

	for _, s := range rep.Skipped {
		u.PrintSkipped(s, "dataset has no detailed table")
	}
}

func printSummary(u *ui.UI, s *analysis.Summary) {
	u.Section("Summary")
	u.Println(u.KeyValue("Period", fmt.Sprintf("%s to %s (%d months, %.1f years)", s.Period.Start, s.Period.End, s.Period.Months, s.Period.Years)))
	u.Println(u.KeyValue("Growth", utils.FormatPercentPtr(s.TotalGrowth)))
	u.Println(u.KeyValue("CAGR", utils.FormatPercentPtr(s.CAGR)))
	u.Println(u.KeyValue("Cards CAGR", utils.FormatPercentPtr(s.CardsCAGR)))
	if s.DetailedRecords > 0 {
		u.Println(u.KeyValue("Detailed", fmt.Sprintf("%d records", s.DetailedRecords)))
	}
	u.Println()

	cols := []ui.Column{{Title: "Measure"}}
	for _, t := range []string{"Mean", "Std", "Min", "25%", "50%", "75%", "Max"} {
		cols = append(cols, ui.Column{Title: t, Right: true})
	}
	row := func(name string, st analysis.Stats) []string {
		return []string{name, num(st.Mean), num(st.Std), num(st.Min), num(st.P25), num(st.P50), num(st.P75), num(st.Max)}
	}
	u.Println(u.Table(cols, [][]string{
		row("Total spending (B INR)", s.TotalSpending),
		row("Active cards (M)", s.ActiveCards),
		row("Avg monthly spend (INR)", s.AvgMonthlySpend),
	}))
}

func printTrends(u *ui.UI, t *analysis.Trends) {
	u.Section("Trends")
	u.Println(u.KeyValue("Mean YoY", utils.FormatPercentPtr(t.MeanYoYGrowth)))
	u.Println(u.KeyValue("Mean MoM", utils.FormatPercentPtr(t.MeanMoMGrowth)))
	u.Println(u.KeyValue("Cards YoY", utils.FormatPercentPtr(t.MeanCardsGrowth)))
	u.Println()

	var rows [][]string
	for _, m := range t.Seasonality {
		rows = append(rows, []string{m.Name, num(m.MeanSpending), fmt.Sprintf("%.3f", m.SeasonalFactor), fmt.Sprintf("%.3f", m.Index)})
	}
	u.Println(u.Table([]ui.Column{
		{Title: "Month"},
		{Title: "Mean spending (B)", Right: true},
		{Title: "Factor", Right: true},
		{Title: "Index", Right: true},
	}, rows))

	rows = nil
	for _, y := range t.Yearly {
		rows = append(rows, []string{
			fmt.Sprintf("%d", y.Year),
			fmt.Sprintf("%d", y.Months),
			utils.FormatBillions(y.TotalSpending),
			num(y.AvgCards),
			utils.FormatINR(y.AvgSpend, 0),
			utils.FormatPercentPtr(y.Growth),
		})
	}
	u.Println(u.Table([]ui.Column{
		{Title: "Year"},
		{Title: "Months", Right: true},
		{Title: "Total", Right: true},
		{Title: "Cards (M)", Right: true},
		{Title: "Avg spend", Right: true},
		{Title: "YoY", Right: true},
	}, rows))
}

func printCategories(u *ui.UI, c *analysis.Categories) {
	u.Section("Categories")
	u.Println(u.Table(breakdownColumns("Category"), breakdownRows(c.Top)))

	if len(c.Growth) > 0 {
		u.Println(u.Muted(fmt.Sprintf("Growth %d vs %d", c.LatestYear, c.PreviousYear)))
		var rows [][]string
		for _, g := range c.Growth {
			rows = append(rows, []string{g.Name, thousands(g.Previous), thousands(g.Latest), utils.FormatPercentPtr(g.Growth)})
		}
		u.Println(u.Table([]ui.Column{
			{Title: "Category"},
			{Title: fmt.Sprintf("%d", c.PreviousYear), Right: true},
			{Title: fmt.Sprintf("%d", c.LatestYear), Right: true},
			{Title: "Growth", Right: true},
		}, rows))
	}

	if len(c.Trend.Rows) > 0 {
		u.Println(u.Muted("Yearly spending of the top categories"))
		cols := []ui.Column{{Title: "Category"}}
		for _, y := range c.Trend.Years {
			cols = append(cols, ui.Column{Title: fmt.Sprintf("%d", y), Right: true})
		}
		var rows [][]string
		for _, r := range c.Trend.Rows {
			row := []string{r.Name}
			for _, v := range r.Values {
				row = append(row, thousands(v))
			}
			rows = append(rows, row)
		}
		u.Println(u.Table(cols, rows))
	}
}

func printSegments(u *ui.UI, s *analysis.Segmentation) {
	u.Section("Customer Segments")
	u.Println(u.KeyValue("Clusters", fmt.Sprintf("%d (%d groups)", s.K, len(s.Segments))))
	u.Println(u.KeyValue("Inertia", fmt.Sprintf("%.3f after %d iterations", s.Inertia, s.Iterations)))
	u.Println()

	var rows [][]string
	for _, c := range s.Clusters {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.ID),
			fmt.Sprintf("%d", c.Size),
			thousands(c.MeanSpend),
			fmt.Sprintf("%.0f", c.MeanTransactions),
			utils.FormatINR(c.MeanTicket, 0),
			utils.FormatShare(c.Share),
			strings.Join(c.Top, ", "),
		})
	}
	u.Println(u.Table([]ui.Column{
		{Title: "Cluster"},
		{Title: "Groups", Right: true},
		{Title: "Mean spend", Right: true},
		{Title: "Mean txns", Right: true},
		{Title: "Ticket", Right: true},
		{Title: "Share", Right: true},
		{Title: "Top groups"},
	}, rows))
}

func printForecast(u *ui.UI, f *analysis.Forecast) {
	u.Section("Forecast")
	u.Println(u.KeyValue("Train/test", fmt.Sprintf("%d / %d months", f.TrainMonths, f.TestMonths)))
	u.Println(u.KeyValue("MAE", num(f.MAE)+" B"))
	u.Println(u.KeyValue("RMSE", num(f.RMSE)+" B"))
	if f.R2 != nil {
		u.Println(u.KeyValue("R²", fmt.Sprintf("%.4f", *f.R2)))
	} else {
		u.Println(u.KeyValue("R²", "n/a"))
	}
	u.Println()

	var rows [][]string
	for _, c := range f.Coefficients {
		rows = append(rows, []string{c.Feature, fmt.Sprintf("%.4f", c.Value)})
	}
	u.Println(u.Table([]ui.Column{{Title: "Feature"}, {Title: "Coefficient", Right: true}}, rows))

	rows = nil
	for _, p := range f.Holdout {
		actual := "n/a"
		if p.Actual != nil {
			actual = num(*p.Actual)
		}
		rows = append(rows, []string{p.Date, actual, num(p.Predicted)})
	}
	if len(rows) > 0 {
		u.Println(u.Muted("Hold-out months"))
		u.Println(u.Table([]ui.Column{
			{Title: "Date"},
			{Title: "Actual (B)", Right: true},
			{Title: "Predicted (B)", Right: true},
		}, rows))
	}

	rows = nil
	for _, p := range f.Projection {
		rows = append(rows, []string{p.Date, num(p.Predicted), num(p.ActiveCards), fmt.Sprintf("%.2f", p.SeasonalFactor)})
	}
	if len(rows) > 0 {
		u.Println(u.Muted("Projection"))
		u.Println(u.Table([]ui.Column{
			{Title: "Date"},
			{Title: "Predicted (B)", Right: true},
			{Title: "Cards (M)", Right: true},
			{Title: "Factor", Right: true},
		}, rows))
	}
}

func printKPIs(u *ui.UI, k *analysis.KPIs, insights []string) {
	u.Section(fmt.Sprintf("KPIs %d", k.Year))
	u.Println(u.KeyValue("Latest", fmt.Sprintf("%s  %s", k.Latest.Date, utils.FormatBillions(k.Latest.TotalSpending))))
	u.Println(u.KeyValue("Year total", fmt.Sprintf("%s over %d months", utils.FormatBillions(k.YearTotal), k.Months)))
	u.Println(u.KeyValue("Peak", fmt.Sprintf("%s  %s", k.Peak.Date, utils.FormatBillions(k.Peak.TotalSpending))))
	u.Println(u.KeyValue("Low", fmt.Sprintf("%s  %s", k.Low.Date, utils.FormatBillions(k.Low.TotalSpending))))
	u.Println(u.KeyValue("Avg YoY", utils.FormatPercentPtr(k.AvgYoYGrowth)))
	u.Println(u.KeyValue("Avg MoM", utils.FormatPercentPtr(k.AvgMoMGrowth)))

	if len(k.TopCategories) > 0 {
		u.Println()
		u.Println(u.Table(breakdownColumns("Top category"), breakdownRows(k.TopCategories)))
	}
	if len(k.TopCities) > 0 {
		u.Println(u.Table(breakdownColumns("Top city"), breakdownRows(k.TopCities)))
	}

	if len(insights) > 0 {
		u.Section("Insights")
		for _, s := range insights {
			u.Println("  • " + s)
		}
	}
}

func breakdownColumns(name string) []ui.Column {
	return []ui.Column{
		{Title: name},
		{Title: "Total", Right: true},
		{Title: "Mean", Right: true},
		{Title: "Share", Right: true},
		{Title: "Transactions", Right: true},
		{Title: "Records", Right: true},
	}
}

func breakdownRows(groups []analysis.Breakdown) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Name,
			thousands(g.Total),
			thousands(g.Mean),
			utils.FormatShare(g.Share),
			ui.FormatCount(g.Transactions),
			fmt.Sprintf("%d", g.Records),
		})
	}
	return rows
}

// thousands formats an amount held in thousands of rupees.
func thousands(v float64) string {
	return utils.FormatCompactINR(v * 1000)
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
