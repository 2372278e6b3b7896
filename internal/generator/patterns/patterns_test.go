package patterns

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestSeasonalTable(t *testing.T) {
	st := NewSeasonalTable()

	tests := []struct {
		month int
		want  float64
	}{
		{1, 1.0}, {2, 1.0}, {3, 1.15}, {4, 1.15}, {5, 1.0}, {6, 0.9},
		{7, 0.9}, {8, 0.9}, {9, 1.0}, {10, 1.3}, {11, 1.3}, {12, 1.3},
	}
	for _, tt := range tests {
		if got := st.Factor(tt.month); got != tt.want {
			t.Errorf("Month %d: expected %v, got %v", tt.month, tt.want, got)
		}
	}

	if got := st.Factor(13); got != BaselineFactor {
		t.Errorf("Expected baseline for out-of-range month, got %v", got)
	}
	if got := st.FactorForDate(time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC)); got != 1.3 {
		t.Errorf("Expected 1.3 for November, got %v", got)
	}

	if errs := st.Validate(); len(errs) != 0 {
		t.Errorf("Expected default table to validate, got %v", errs)
	}
	st[4] = 0
	if errs := st.Validate(); len(errs) != 1 {
		t.Errorf("Expected one error for zero factor, got %v", errs)
	}
}

func TestDefaultSegments(t *testing.T) {
	segs := NewDefaultSegments()
	if errs := segs.Validate(); len(errs) != 0 {
		t.Fatalf("Expected default segments to validate, got %v", errs)
	}

	tests := []struct {
		name      string
		year      int
		month     int
		wantCards float64
		wantSpend float64
	}{
		{"jan 2019", 2019, 1, 54_000_000, 12_000},
		{"dec 2019", 2019, 12, 54_000_000 + 11*500_000, 12_000},
		{"jun 2020 shock", 2020, 6, 60_000_000 + 5*1_000_000, 8_000 + 6*500},
		{"jul 2020 recovery", 2020, 7, 60_000_000 + 6*1_000_000, 10_000 + 7*800},
		{"mar 2023", 2023, 3, 95_000_000 + 2*2_000_000, 15_500 + 3*100},
		{"jul 2025", 2025, 7, 111_000_000 + 6*100_000, 16_800 + 7*50},
		{"open end 2026", 2026, 1, 111_000_000 + 12*100_000, 16_800 + 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := segs.Find(tt.year)
			if !ok {
				t.Fatalf("No segment for %d", tt.year)
			}
			if got := seg.ActiveCards(tt.year, tt.month); got != tt.wantCards {
				t.Errorf("Expected cards %v, got %v", tt.wantCards, got)
			}
			if got := seg.AvgSpend(tt.month); got != tt.wantSpend {
				t.Errorf("Expected spend %v, got %v", tt.wantSpend, got)
			}
		})
	}
}

func TestSegmentsBeforeAnchorFloorAtZero(t *testing.T) {
	seg := YearSegment{AnchorYear: 2019, CardsBase: 1_000, CardsPerMonth: 500, Spend: []SpendPiece{{UpToMonth: 12, Base: 10}}}
	if got := seg.ActiveCards(2018, 1); got != 0 {
		t.Errorf("Expected cards floored at 0, got %v", got)
	}
	if got := seg.MonthsSinceAnchor(2018, 12); got != -1 {
		t.Errorf("Expected -1 months, got %d", got)
	}
}

func TestSegmentValidation(t *testing.T) {
	tests := []struct {
		name    string
		segs    YearSegments
		wantErr string
	}{
		{"empty", nil, "empty"},
		{"inverted years", YearSegments{{Name: "x", FromYear: 2021, ToYear: 2020, AnchorYear: 2020, Spend: []SpendPiece{{UpToMonth: 12}}}}, "after to_year"},
		{"missing anchor", YearSegments{{Name: "x", Spend: []SpendPiece{{UpToMonth: 12}}}}, "anchor_year"},
		{"no spend", YearSegments{{Name: "x", AnchorYear: 2020}}, "spend piece"},
		{"short spend", YearSegments{{Name: "x", AnchorYear: 2020, Spend: []SpendPiece{{UpToMonth: 6}}}}, "reach month 12"},
		{"unordered spend", YearSegments{{Name: "x", AnchorYear: 2020, Spend: []SpendPiece{{UpToMonth: 6}, {UpToMonth: 3}, {UpToMonth: 12}}}}, "increasing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.segs.Validate()
			if len(errs) == 0 {
				t.Fatal("Expected validation errors")
			}
			if !strings.Contains(strings.Join(errs, "\n"), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, errs)
			}
		})
	}

	gap := YearSegments{{Name: "2020", FromYear: 2020, ToYear: 2020, AnchorYear: 2020, Spend: []SpendPiece{{UpToMonth: 12}}}}
	missing := gap.MissingYears(2019, 2021)
	if len(missing) != 2 || missing[0] != 2019 || missing[1] != 2021 {
		t.Errorf("Expected missing [2019 2021], got %v", missing)
	}
}

func TestDefaultDimensionsShareNormalization(t *testing.T) {
	ds := NewDefaultDimensions()

	if errs := ds.Validate(); len(errs) != 0 {
		t.Fatalf("Expected default dimensions to validate, got %v", errs)
	}
	if sum := ds.Category.Sum(); math.Abs(sum-1) > ShareTolerance {
		t.Errorf("Category shares sum to %v", sum)
	}
	if sum := ds.City.Sum(); math.Abs(sum-1) > ShareTolerance {
		t.Errorf("City shares sum to %v", sum)
	}
	if got := ds.Combinations(); got != 9*10*5*2*3 {
		t.Errorf("Expected 2700 combinations, got %d", got)
	}
}

func TestCombinationOrder(t *testing.T) {
	ds := NewDefaultDimensions()

	first := ds.Combination(0)
	if first.Category.Name != "Grocery & Food" || first.City.Name != "Mumbai" ||
		first.AgeGroup.Name != "18-25" || first.Gender.Name != "Male" || first.CardType.Name != "Gold" {
		t.Errorf("Unexpected first combination: %+v", first)
	}

	// Card type varies fastest.
	if got := ds.Combination(1).CardType.Name; got != "Silver" {
		t.Errorf("Expected Silver at index 1, got %s", got)
	}
	if got := ds.Combination(3).Gender.Name; got != "Female" {
		t.Errorf("Expected Female at index 3, got %s", got)
	}

	last := ds.Combination(ds.Combinations() - 1)
	if last.Category.Name != "Others" || last.City.Name != "Nashik" || last.CardType.Name != "Platinum" {
		t.Errorf("Unexpected last combination: %+v", last)
	}

	// Every index maps to a distinct cell.
	seen := make(map[Combination]bool)
	for i := 0; i < ds.Combinations(); i++ {
		c := ds.Combination(i)
		if seen[c] {
			t.Fatalf("Duplicate combination at %d: %+v", i, c)
		}
		seen[c] = true
	}
}

func TestDimensionValidation(t *testing.T) {
	ds := NewDefaultDimensions()
	ds.City.Levels[0].Weight = 0.5
	ds.Gender.Levels = nil
	ds.CardType.Levels = append(ds.CardType.Levels, Level{"Gold", 1})
	ds.AgeGroup.Levels[0].Weight = -1

	errs := strings.Join(ds.Validate(), "\n")
	for _, want := range []string{"shares must sum to 1", "no levels", "duplicate level", "must be positive"} {
		if !strings.Contains(errs, want) {
			t.Errorf("Expected error containing %q, got:\n%s", want, errs)
		}
	}

	if l := NewDefaultDimensions().CardType.Levels[2]; l.Name != "Platinum" || l.Weight != 2.0 {
		t.Errorf("Expected Platinum 2.0, got %+v", l)
	}
}

func TestTransactionAmountSample(t *testing.T) {
	seq := func(vals ...float64) func() float64 {
		i := 0
		return func() float64 {
			v := vals[i%len(vals)]
			i++
			return v
		}
	}

	ta := NewTransactionAmount()

	t.Run("normal draw", func(t *testing.T) {
		v, out := ta.Sample(seq(0.5))
		if v != 4000 || out != SampleOK {
			t.Errorf("Expected 4000 OK, got %v %v", v, out)
		}
	})

	t.Run("clamp", func(t *testing.T) {
		v, out := ta.Sample(seq(-4))
		if v != ta.Floor || out != SampleClamped {
			t.Errorf("Expected floor clamp, got %v %v", v, out)
		}
	})

	t.Run("redraw succeeds", func(t *testing.T) {
		r := ta
		r.Policy = PolicyRedraw
		v, out := r.Sample(seq(-4, -5, 1))
		if v != 4500 || out != SampleRedrawn {
			t.Errorf("Expected 4500 redrawn, got %v %v", v, out)
		}
	})

	t.Run("redraw exhausted", func(t *testing.T) {
		r := ta
		r.Policy = PolicyRedraw
		r.MaxRedraws = 2
		v, out := r.Sample(seq(-4))
		if v != r.Floor || out != SampleClamped {
			t.Errorf("Expected clamp after redraws, got %v %v", v, out)
		}
	})

	t.Run("fail", func(t *testing.T) {
		r := ta
		r.Policy = PolicyFail
		v, out := r.Sample(seq(-4))
		if v != -500 || out != SampleDegenerate {
			t.Errorf("Expected degenerate -500, got %v %v", v, out)
		}
	})
}

func TestTransactionAmountValidate(t *testing.T) {
	if errs := NewTransactionAmount().Validate(); len(errs) != 0 {
		t.Errorf("Expected default to validate, got %v", errs)
	}

	bad := TransactionAmount{Mean: 0, StdDev: -1, Floor: 0, Policy: "sometimes"}
	if errs := bad.Validate(); len(errs) != 4 {
		t.Errorf("Expected 4 errors, got %v", errs)
	}

	redraw := NewTransactionAmount()
	redraw.Policy = PolicyRedraw
	redraw.MaxRedraws = 0
	if errs := redraw.Validate(); len(errs) != 1 {
		t.Errorf("Expected 1 error, got %v", errs)
	}
}
