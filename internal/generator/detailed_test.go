package generator

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/willfong/card-spend/internal/generator/patterns"
	"github.com/willfong/card-spend/internal/models"
	"github.com/willfong/card-spend/internal/utils"
)

func generateMonthly(t *testing.T, params MonthlyParams, seed int64) []models.MonthlyRecord {
	t.Helper()
	records, err := NewMonthlyGenerator(params, utils.NewRandom(seed)).Generate()
	if err != nil {
		t.Fatalf("Monthly generation failed: %v", err)
	}
	return records
}

func TestDetailedScenarioSingleMonth(t *testing.T) {
	monthly := generateMonthly(t, zeroNoiseMonthly(date(2019, 1, 1), date(2019, 1, 31)), 7)

	params := DefaultDetailParams()
	params.NoiseStdDev = 0
	records, stats, err := NewDetailedExpander(params, utils.NewRandom(7)).Expand(context.Background(), monthly)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if stats.Combinations != 2700 {
		t.Errorf("Expected 2700 combinations, got %d", stats.Combinations)
	}
	if stats.Emitted+stats.Discarded != stats.Combinations {
		t.Errorf("Emitted %d + discarded %d != combinations %d", stats.Emitted, stats.Discarded, stats.Combinations)
	}
	if int64(len(records)) != stats.Emitted {
		t.Errorf("Expected %d records, got %d", stats.Emitted, len(records))
	}

	want := utils.Round(648.0*0.25*0.20*1.3*1.05*2.0, 2)
	if want != 88.45 {
		t.Fatalf("Expected reference value 88.45, got %v", want)
	}

	found := false
	for _, r := range records {
		if r.Category == "Grocery & Food" && r.City == "Mumbai" && r.AgeGroup == "26-35" &&
			r.Gender == "Male" && r.CardType == "Platinum" {
			found = true
			if r.SpendingAmountThousandsINR != want {
				t.Errorf("Expected spending %v, got %v", want, r.SpendingAmountThousandsINR)
			}
		}
	}
	if !found {
		t.Fatal("Expected a Grocery & Food / Mumbai / 26-35 / Male / Platinum record")
	}
}

func TestDetailedRecordInvariants(t *testing.T) {
	params := DefaultMonthlyParams()
	params.End = date(2020, 12, 31)
	monthly := generateMonthly(t, params, 11)

	records, _, err := NewDetailedExpander(DefaultDetailParams(), utils.NewRandom(11)).Expand(context.Background(), monthly)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("Expected records")
	}

	for i, r := range records {
		if r.SpendingAmountThousandsINR < 0 {
			t.Fatalf("Record %d: negative spending %v", i, r.SpendingAmountThousandsINR)
		}
		if r.SpendingAmountThousandsINR <= 0.01 {
			t.Fatalf("Record %d: spending %v at or below threshold", i, r.SpendingAmountThousandsINR)
		}
		if r.TransactionCount < 1 {
			t.Fatalf("Record %d: transaction count %d", i, r.TransactionCount)
		}
		if r.AvgTransactionAmountINR <= 0 {
			t.Fatalf("Record %d: average transaction %v", i, r.AvgTransactionAmountINR)
		}
		if i > 0 && r.Date.Before(records[i-1].Date) {
			t.Fatalf("Record %d: dates out of order", i)
		}
	}
}

func TestDetailedReproducibleAcrossWorkers(t *testing.T) {
	params := DefaultMonthlyParams()
	params.End = date(2019, 12, 31)
	monthly := generateMonthly(t, params, 21)

	expand := func(workers int) []models.DetailedRecord {
		dp := DefaultDetailParams()
		dp.Workers = workers
		records, _, err := NewDetailedExpander(dp, utils.NewRandom(21)).Expand(context.Background(), monthly)
		if err != nil {
			t.Fatalf("Expand with %d workers failed: %v", workers, err)
		}
		return records
	}

	serial := expand(1)
	for _, workers := range []int{2, 4, 16} {
		if !reflect.DeepEqual(serial, expand(workers)) {
			t.Errorf("Output with %d workers differs from serial output", workers)
		}
	}
}

func TestDetailedExpandMonthMatchesExpand(t *testing.T) {
	params := DefaultMonthlyParams()
	params.End = date(2019, 3, 31)
	monthly := generateMonthly(t, params, 8)

	e := NewDetailedExpander(DefaultDetailParams(), utils.NewRandom(8))
	all, _, err := e.Expand(context.Background(), monthly)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	march, _, err := e.ExpandMonth(monthly[2])
	if err != nil {
		t.Fatalf("ExpandMonth failed: %v", err)
	}
	if !reflect.DeepEqual(all[len(all)-len(march):], march) {
		t.Error("Expected ExpandMonth to reproduce the same month from Expand")
	}
}

func TestDetailedEmptyInput(t *testing.T) {
	records, stats, err := NewDetailedExpander(DefaultDetailParams(), utils.NewRandom(1)).Expand(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected empty non-nil output, got %v", records)
	}
	if stats.Combinations != 0 {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}

func TestDetailedThresholdDiscards(t *testing.T) {
	monthly := generateMonthly(t, zeroNoiseMonthly(date(2019, 1, 1), date(2019, 1, 31)), 1)
	// 648 * smallest shares is well below 100
	params := DefaultDetailParams()
	params.NoiseStdDev = 0
	params.Threshold = 5

	records, stats, err := NewDetailedExpander(params, utils.NewRandom(1)).Expand(context.Background(), monthly)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if stats.Discarded == 0 {
		t.Error("Expected some records below the threshold")
	}
	for _, r := range records {
		if r.SpendingAmountThousandsINR <= 5 {
			t.Fatalf("Record with spending %v survived threshold 5", r.SpendingAmountThousandsINR)
		}
	}
}

func TestDetailedDegeneracyPolicies(t *testing.T) {
	monthly := generateMonthly(t, zeroNoiseMonthly(date(2019, 1, 1), date(2019, 2, 28)), 1)

	degenerate := patterns.TransactionAmount{Mean: 50, StdDev: 0, Floor: 100, MaxRedraws: 2}

	t.Run("fail", func(t *testing.T) {
		params := DefaultDetailParams()
		params.Amount = degenerate
		params.Amount.Policy = patterns.PolicyFail

		records, _, err := NewDetailedExpander(params, utils.NewRandom(1)).Expand(context.Background(), monthly)
		if err == nil {
			t.Fatal("Expected a degeneracy error")
		}
		if records != nil {
			t.Error("Expected no records on error")
		}
		if !errors.Is(err, ErrNumericDegeneracy) {
			t.Errorf("Expected ErrNumericDegeneracy, got %v", err)
		}
		var de *NumericDegeneracyError
		if !errors.As(err, &de) {
			t.Fatalf("Expected *NumericDegeneracyError, got %T", err)
		}
		if de.Combination != 0 || de.Draw != 50 {
			t.Errorf("Unexpected error details: %+v", de)
		}
	})

	t.Run("clamp", func(t *testing.T) {
		params := DefaultDetailParams()
		params.Amount = degenerate
		params.Amount.Policy = patterns.PolicyClamp

		records, stats, err := NewDetailedExpander(params, utils.NewRandom(1)).Expand(context.Background(), monthly)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if stats.Clamped != stats.Combinations {
			t.Errorf("Expected every draw clamped, got %d of %d", stats.Clamped, stats.Combinations)
		}
		for _, r := range records {
			want := int64(r.SpendingAmountThousandsINR * 1000 / 100)
			if want < 1 {
				want = 1
			}
			if r.TransactionCount != want {
				t.Fatalf("Expected count %d at the floor amount, got %d", want, r.TransactionCount)
			}
		}
	})

	t.Run("redraw", func(t *testing.T) {
		params := DefaultDetailParams()
		params.Amount = degenerate
		params.Amount.Policy = patterns.PolicyRedraw

		_, stats, err := NewDetailedExpander(params, utils.NewRandom(1)).Expand(context.Background(), monthly)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		// zero stddev can never escape the floor, so every redraw falls back to clamping
		if stats.Redrawn != 0 || stats.Clamped != stats.Combinations {
			t.Errorf("Expected all clamped after redraws, got %+v", stats)
		}
	})
}

func TestDetailedValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *DetailParams)
		want   string
	}{
		{"empty dimension", func(p *DetailParams) { p.Dimensions.Gender.Levels = nil }, "gender"},
		{"share sum", func(p *DetailParams) {
			p.Dimensions.City.Levels = []patterns.Level{{Name: "Mumbai", Weight: 0.5}}
		}, "must sum to 1"},
		{"negative noise", func(p *DetailParams) { p.NoiseStdDev = -1 }, "noise stddev"},
		{"bad policy", func(p *DetailParams) { p.Amount.Policy = "retry" }, "unknown degeneracy policy"},
		{"zero scale", func(p *DetailParams) { p.AmountScale = 0 }, "amount scale"},
		{"negative threshold", func(p *DetailParams) { p.Threshold = -1 }, "threshold"},
	}

	monthly := generateMonthly(t, zeroNoiseMonthly(date(2019, 1, 1), date(2019, 1, 31)), 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultDetailParams()
			tt.modify(&p)

			_, _, err := NewDetailedExpander(p, utils.NewRandom(1)).Expand(context.Background(), monthly)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestDetailedCancelled(t *testing.T) {
	params := DefaultMonthlyParams()
	monthly := generateMonthly(t, params, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewDetailedExpander(DefaultDetailParams(), utils.NewRandom(1)).Expand(ctx, monthly)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDetailedProgress(t *testing.T) {
	params := DefaultMonthlyParams()
	params.End = date(2019, 6, 30)
	monthly := generateMonthly(t, params, 1)

	var calls, lastDone, lastTotal int
	e := NewDetailedExpander(DefaultDetailParams(), utils.NewRandom(1))
	e.OnProgress(func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	})
	if _, _, err := e.Expand(context.Background(), monthly); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if calls != 6 || lastDone != 6 || lastTotal != 6 {
		t.Errorf("Expected 6 progress calls ending at 6/6, got %d calls, %d/%d", calls, lastDone, lastTotal)
	}
}
