package patterns

import (
	"fmt"
	"math"
)

// SpendPiece is one linear piece of a segment's average-spend curve:
// Base + PerMonth*month for calendar months up to and including UpToMonth.
type SpendPiece struct {
	UpToMonth int     `json:"up_to_month"`
	Base      float64 `json:"base"`
	PerMonth  float64 `json:"per_month"`
}

// YearSegment is a contiguous calendar-year range sharing one set of base
// formulas for active cards and average monthly spend.
//
// Active cards grow linearly with the number of months elapsed since January
// of AnchorYear. Average spend is piecewise linear in the calendar month,
// which lets a segment model a shock-then-recovery year.
type YearSegment struct {
	Name          string       `json:"name"`
	FromYear      int          `json:"from_year"` // 0 = open start
	ToYear        int          `json:"to_year"`   // 0 = open end
	AnchorYear    int          `json:"anchor_year"`
	CardsBase     float64      `json:"cards_base"`
	CardsPerMonth float64      `json:"cards_per_month"`
	Spend         []SpendPiece `json:"spend"`
}

// Contains reports whether year falls inside the segment.
func (s YearSegment) Contains(year int) bool {
	if s.FromYear != 0 && year < s.FromYear {
		return false
	}
	if s.ToYear != 0 && year > s.ToYear {
		return false
	}
	return true
}

// MonthsSinceAnchor returns the months elapsed between January of the anchor
// year and the given month. Negative before the anchor.
func (s YearSegment) MonthsSinceAnchor(year, month int) int {
	return (year-s.AnchorYear)*12 + month - 1
}

// ActiveCards returns the absolute active card count for a month, floored at zero.
func (s YearSegment) ActiveCards(year, month int) float64 {
	cards := s.CardsBase + float64(s.MonthsSinceAnchor(year, month))*s.CardsPerMonth
	return math.Max(0, cards)
}

// AvgSpend returns the average monthly spend per card, floored at zero.
func (s YearSegment) AvgSpend(month int) float64 {
	if len(s.Spend) == 0 {
		return 0
	}
	piece := s.Spend[len(s.Spend)-1]
	for _, p := range s.Spend {
		if month <= p.UpToMonth {
			piece = p
			break
		}
	}
	return math.Max(0, piece.Base+float64(month)*piece.PerMonth)
}

// YearSegments is an ordered list of segments; the first match wins.
type YearSegments []YearSegment

// Find returns the segment covering year.
func (ys YearSegments) Find(year int) (YearSegment, bool) {
	for _, s := range ys {
		if s.Contains(year) {
			return s, true
		}
	}
	return YearSegment{}, false
}

// Validate checks the table is usable. It returns one message per problem.
func (ys YearSegments) Validate() []string {
	if len(ys) == 0 {
		return []string{"year segment table is empty"}
	}

	var errs []string
	for i, s := range ys {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if s.FromYear != 0 && s.ToYear != 0 && s.FromYear > s.ToYear {
			errs = append(errs, fmt.Sprintf("segment %s: from_year %d after to_year %d", label, s.FromYear, s.ToYear))
		}
		if s.AnchorYear == 0 {
			errs = append(errs, fmt.Sprintf("segment %s: anchor_year is required", label))
		}
		if s.CardsBase < 0 {
			errs = append(errs, fmt.Sprintf("segment %s: cards_base must be non-negative", label))
		}
		if len(s.Spend) == 0 {
			errs = append(errs, fmt.Sprintf("segment %s: at least one spend piece is required", label))
			continue
		}
		prev := 0
		for _, p := range s.Spend {
			if p.UpToMonth <= prev || p.UpToMonth > 12 {
				errs = append(errs, fmt.Sprintf("segment %s: spend pieces must have increasing up_to_month in 1-12", label))
				break
			}
			prev = p.UpToMonth
		}
		if prev != 12 {
			errs = append(errs, fmt.Sprintf("segment %s: last spend piece must reach month 12", label))
		}
	}
	return errs
}

// MissingYears returns the years in [from, to] that no segment covers.
func (ys YearSegments) MissingYears(from, to int) []int {
	var missing []int
	for y := from; y <= to; y++ {
		if _, ok := ys.Find(y); !ok {
			missing = append(missing, y)
		}
	}
	return missing
}

// NewDefaultSegments returns the built-in market model: steady growth through
// 2019, the 2020 shock and recovery, fast expansion 2021-2023, and saturation
// from 2024 on.
func NewDefaultSegments() YearSegments {
	return YearSegments{
		{
			Name: "pre-2020", ToYear: 2019, AnchorYear: 2019,
			CardsBase: 54_000_000, CardsPerMonth: 500_000,
			Spend: []SpendPiece{{UpToMonth: 12, Base: 12_000}},
		},
		{
			Name: "2020", FromYear: 2020, ToYear: 2020, AnchorYear: 2020,
			CardsBase: 60_000_000, CardsPerMonth: 1_000_000,
			Spend: []SpendPiece{
				{UpToMonth: 6, Base: 8_000, PerMonth: 500},
				{UpToMonth: 12, Base: 10_000, PerMonth: 800},
			},
		},
		{
			Name: "2021", FromYear: 2021, ToYear: 2021, AnchorYear: 2021,
			CardsBase: 70_000_000, CardsPerMonth: 1_500_000,
			Spend: []SpendPiece{{UpToMonth: 12, Base: 13_000, PerMonth: 200}},
		},
		{
			Name: "2022", FromYear: 2022, ToYear: 2022, AnchorYear: 2022,
			CardsBase: 80_000_000, CardsPerMonth: 1_800_000,
			Spend: []SpendPiece{{UpToMonth: 12, Base: 14_500, PerMonth: 150}},
		},
		{
			Name: "2023", FromYear: 2023, ToYear: 2023, AnchorYear: 2023,
			CardsBase: 95_000_000, CardsPerMonth: 2_000_000,
			Spend: []SpendPiece{{UpToMonth: 12, Base: 15_500, PerMonth: 100}},
		},
		{
			Name: "2024", FromYear: 2024, ToYear: 2024, AnchorYear: 2024,
			CardsBase: 108_000_000, CardsPerMonth: 200_000,
			Spend: []SpendPiece{{UpToMonth: 12, Base: 16_000, PerMonth: 80}},
		},
		{
			Name: "2025+", FromYear: 2025, AnchorYear: 2025,
			CardsBase: 111_000_000, CardsPerMonth: 100_000,
			Spend: []SpendPiece{{UpToMonth: 12, Base: 16_800, PerMonth: 50}},
		},
	}
}
