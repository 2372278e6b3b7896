package generator

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/willfong/card-spend/internal/generator/patterns"
	"github.com/willfong/card-spend/internal/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func zeroNoiseMonthly(start, end time.Time) MonthlyParams {
	p := DefaultMonthlyParams()
	p.Start = start
	p.End = end
	p.NoiseStdDev = 0
	return p
}

func TestMonthEnds(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{"single month", date(2019, 1, 1), date(2019, 1, 31), []string{"2019-01-31"}},
		{"end before month end", date(2019, 1, 1), date(2019, 1, 30), nil},
		{"leap february", date(2024, 1, 15), date(2024, 3, 31), []string{"2024-01-31", "2024-02-29", "2024-03-31"}},
		{"across year", date(2019, 11, 30), date(2020, 1, 31), []string{"2019-11-30", "2019-12-31", "2020-01-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range MonthEnds(tt.start, tt.end) {
				got = append(got, FormatDate(d))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if n := len(MonthEnds(date(2019, 1, 1), date(2025, 8, 1))); n != 79 {
		t.Errorf("Expected 79 months for the default range, got %d", n)
	}
}

func TestMonthlyScenarioJanuary2019(t *testing.T) {
	params := zeroNoiseMonthly(date(2019, 1, 1), date(2019, 1, 31))
	records, err := NewMonthlyGenerator(params, utils.NewRandom(7)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.TotalSpendingBillionINR != 648.0 {
		t.Errorf("Expected total 648.0, got %v", r.TotalSpendingBillionINR)
	}
	if r.ActiveCardsMillions != 54.0 {
		t.Errorf("Expected 54.0M cards, got %v", r.ActiveCardsMillions)
	}
	if r.AvgMonthlySpendINR != 12000 {
		t.Errorf("Expected spend 12000, got %v", r.AvgMonthlySpendINR)
	}
	if r.Quarter != "Q1" || r.Year != 2019 || r.Month != 1 {
		t.Errorf("Unexpected calendar fields: %+v", r)
	}
	if r.MoMGrowthSpending != nil || r.YoYGrowthSpending != nil {
		t.Error("Expected nil growth for a single record")
	}
}

func TestMonthlyDatesMonotonic(t *testing.T) {
	records, err := NewMonthlyGenerator(DefaultMonthlyParams(), utils.NewRandom(42)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(records) != 79 {
		t.Fatalf("Expected 79 records, got %d", len(records))
	}

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Date, records[i].Date
		if !cur.After(prev) {
			t.Fatalf("Record %d: %s not after %s", i, FormatDate(cur), FormatDate(prev))
		}
		next := time.Date(prev.Year(), prev.Month()+2, 0, 0, 0, 0, 0, time.UTC)
		if !cur.Equal(next) {
			t.Errorf("Record %d: expected %s, got %s", i, FormatDate(next), FormatDate(cur))
		}
	}
}

func TestMonthlySeasonalClosure(t *testing.T) {
	params := DefaultMonthlyParams()
	records, err := NewMonthlyGenerator(params, utils.NewRandom(42)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	allowed := map[float64]bool{0.9: true, 1.0: true, 1.15: true, 1.3: true}
	for _, r := range records {
		if !allowed[r.SeasonalFactor] {
			t.Errorf("%s: unexpected seasonal factor %v", FormatDate(r.Date), r.SeasonalFactor)
		}
		if want := params.Seasonal.Factor(r.Month); r.SeasonalFactor != want {
			t.Errorf("%s: expected factor %v for month %d, got %v", FormatDate(r.Date), want, r.Month, r.SeasonalFactor)
		}
		if r.ActiveCardsMillions < 0 || r.AvgMonthlySpendINR < 0 {
			t.Errorf("%s: negative cards or spend", FormatDate(r.Date))
		}
	}
}

func TestMonthlyReproducible(t *testing.T) {
	a, err := NewMonthlyGenerator(DefaultMonthlyParams(), utils.NewRandom(99)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := NewMonthlyGenerator(DefaultMonthlyParams(), utils.NewRandom(99)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Expected identical sequences for the same seed")
	}

	c, _ := NewMonthlyGenerator(DefaultMonthlyParams(), utils.NewRandom(100)).Generate()
	if reflect.DeepEqual(a, c) {
		t.Error("Expected different sequences for different seeds")
	}
}

func TestMonthlyRangeIndependence(t *testing.T) {
	full := DefaultMonthlyParams()
	full.End = date(2019, 12, 31)
	sub := full
	sub.Start = date(2019, 6, 1)

	rng := utils.NewRandom(5)
	a, err := NewMonthlyGenerator(full, rng).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := NewMonthlyGenerator(sub, rng).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	offset := len(a) - len(b)
	for i, r := range b {
		want := a[i+offset]
		if r.TotalSpendingBillionINR != want.TotalSpendingBillionINR || r.AvgMonthlySpendINR != want.AvgMonthlySpendINR {
			t.Errorf("%s: expected %v, got %v", FormatDate(r.Date), want.TotalSpendingBillionINR, r.TotalSpendingBillionINR)
		}
	}
}

func TestMonthlyNoiseAppliedToSpend(t *testing.T) {
	params := zeroNoiseMonthly(date(2021, 1, 1), date(2021, 12, 31))
	params.NoiseStdDev = 0.05
	records, err := NewMonthlyGenerator(params, utils.NewRandom(3)).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	seg, _ := params.Segments.Find(2021)
	for _, r := range records {
		base := seg.AvgSpend(r.Month)
		if r.AvgMonthlySpendINR == base {
			t.Errorf("%s: expected noise on average spend", FormatDate(r.Date))
		}
		// total / (cards * seasonal) recovers spend up to rounding
		implied := r.TotalSpendingBillionINR * 1e9 / (r.ActiveCardsMillions * 1e6 * r.SeasonalFactor)
		if diff := implied - r.AvgMonthlySpendINR; diff > 60 || diff < -60 {
			t.Errorf("%s: total and spend noise disagree (implied %.1f, got %.0f)", FormatDate(r.Date), implied, r.AvgMonthlySpendINR)
		}
	}
}

func TestMonthlyHighNoiseNonNegative(t *testing.T) {
	params := DefaultMonthlyParams()
	params.NoiseStdDev = 0.6
	for _, seed := range []int64{1, 7, 42} {
		records, err := NewMonthlyGenerator(params, utils.NewRandom(seed)).Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, r := range records {
			if r.TotalSpendingBillionINR < 0 || r.AvgMonthlySpendINR < 0 {
				t.Errorf("seed %d %s: negative spending (total %v, avg %v)", seed, FormatDate(r.Date), r.TotalSpendingBillionINR, r.AvgMonthlySpendINR)
			}
		}
	}
}

func TestMonthlyValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *MonthlyParams)
		want   string
	}{
		{"end before start", func(p *MonthlyParams) { p.End = date(2018, 1, 1) }, "before start date"},
		{"negative noise", func(p *MonthlyParams) { p.NoiseStdDev = -0.1 }, "noise stddev"},
		{"empty segments", func(p *MonthlyParams) { p.Segments = nil }, "segment table is empty"},
		{"segment gap", func(p *MonthlyParams) { p.Segments = p.Segments[:1] }, "no year segment covers"},
		{"zero seasonal", func(p *MonthlyParams) { p.Seasonal[4] = 0 }, "seasonal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultMonthlyParams()
			p.Segments = append(patterns.YearSegments(nil), p.Segments...)
			tt.modify(&p)

			records, err := NewMonthlyGenerator(p, utils.NewRandom(1)).Generate()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if records != nil {
				t.Error("Expected no records on error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestMonthlyEmptyRange(t *testing.T) {
	params := zeroNoiseMonthly(date(2019, 1, 1), date(2019, 1, 15))
	records, err := NewMonthlyGenerator(params, utils.NewRandom(1)).Generate()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}
