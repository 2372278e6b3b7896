package patterns

import (
	"fmt"
	"math"
)

// ShareTolerance is how far a share dimension may drift from summing to 1.
const ShareTolerance = 1e-9

// Level is one value of a dimension with its weight. For share dimensions the
// weight is a fraction of the monthly total; for multiplier dimensions it is an
// adjustment factor.
type Level struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Dimension is an ordered list of levels. Order is significant: it fixes the
// expansion order and therefore the random draw positions.
type Dimension struct {
	Name   string  `json:"name"`
	Levels []Level `json:"levels"`
}

// Sum returns the total of all level weights.
func (d Dimension) Sum() float64 {
	total := 0.0
	for _, l := range d.Levels {
		total += l.Weight
	}
	return total
}

// Names returns the level names in order.
func (d Dimension) Names() []string {
	names := make([]string, len(d.Levels))
	for i, l := range d.Levels {
		names[i] = l.Name
	}
	return names
}

// validate checks levels are present, named, unique and positive.
func (d Dimension) validate() []string {
	if len(d.Levels) == 0 {
		return []string{fmt.Sprintf("dimension %q has no levels", d.Name)}
	}

	var errs []string
	seen := make(map[string]bool, len(d.Levels))
	for i, l := range d.Levels {
		if l.Name == "" {
			errs = append(errs, fmt.Sprintf("dimension %q: level %d has no name", d.Name, i))
		}
		if seen[l.Name] {
			errs = append(errs, fmt.Sprintf("dimension %q: duplicate level %q", d.Name, l.Name))
		}
		seen[l.Name] = true
		if !(l.Weight > 0) || math.IsInf(l.Weight, 0) {
			errs = append(errs, fmt.Sprintf("dimension %q: level %q weight must be positive (got %g)", d.Name, l.Name, l.Weight))
		}
	}
	return errs
}

// Dimensions holds the five tables the detailed expansion crosses.
// Category and City are share dimensions; AgeGroup, Gender and CardType are
// multipliers and are deliberately not normalized, so a month's detailed rows
// do not sum back to its total.
type Dimensions struct {
	Category Dimension `json:"category"`
	City     Dimension `json:"city"`
	AgeGroup Dimension `json:"age_group"`
	Gender   Dimension `json:"gender"`
	CardType Dimension `json:"card_type"`
}

// Validate returns one message per problem found.
func (ds Dimensions) Validate() []string {
	var errs []string
	for _, d := range ds.All() {
		errs = append(errs, d.validate()...)
	}
	for _, d := range []Dimension{ds.Category, ds.City} {
		if len(d.Levels) == 0 {
			continue
		}
		if sum := d.Sum(); math.Abs(sum-1) > ShareTolerance {
			errs = append(errs, fmt.Sprintf("dimension %q shares must sum to 1 (got %.12f)", d.Name, sum))
		}
	}
	return errs
}

// All returns the dimensions in expansion order.
func (ds Dimensions) All() []Dimension {
	return []Dimension{ds.Category, ds.City, ds.AgeGroup, ds.Gender, ds.CardType}
}

// Combinations returns the size of the full cross-product.
func (ds Dimensions) Combinations() int {
	n := 1
	for _, d := range ds.All() {
		n *= len(d.Levels)
	}
	return n
}

// Combination is one cell of the cross-product.
type Combination struct {
	Category Level
	City     Level
	AgeGroup Level
	Gender   Level
	CardType Level
}

// Combination decodes a cross-product index. Card type varies fastest and
// category slowest, matching nested loops category > city > age > gender > card.
func (ds Dimensions) Combination(idx int) Combination {
	card := idx % len(ds.CardType.Levels)
	idx /= len(ds.CardType.Levels)
	gender := idx % len(ds.Gender.Levels)
	idx /= len(ds.Gender.Levels)
	age := idx % len(ds.AgeGroup.Levels)
	idx /= len(ds.AgeGroup.Levels)
	city := idx % len(ds.City.Levels)
	idx /= len(ds.City.Levels)

	return Combination{
		Category: ds.Category.Levels[idx],
		City:     ds.City.Levels[city],
		AgeGroup: ds.AgeGroup.Levels[age],
		Gender:   ds.Gender.Levels[gender],
		CardType: ds.CardType.Levels[card],
	}
}

// NewDefaultDimensions returns the built-in Indian market tables.
func NewDefaultDimensions() Dimensions {
	return Dimensions{
		Category: Dimension{Name: "category", Levels: []Level{
			{"Grocery & Food", 0.25},
			{"Entertainment", 0.12},
			{"Shopping & Retail", 0.20},
			{"Travel", 0.10},
			{"Bills & Utilities", 0.15},
			{"Fuel", 0.08},
			{"Healthcare", 0.05},
			{"Education", 0.03},
			{"Others", 0.02},
		}},
		City: Dimension{Name: "city", Levels: []Level{
			{"Mumbai", 0.20},
			{"Delhi NCR", 0.18},
			{"Bangalore", 0.15},
			{"Chennai", 0.10},
			{"Hyderabad", 0.08},
			{"Pune", 0.07},
			{"Kolkata", 0.06},
			{"Ahmedabad", 0.05},
			{"Surat", 0.06},
			{"Nashik", 0.05},
		}},
		AgeGroup: Dimension{Name: "age_group", Levels: []Level{
			{"18-25", 0.6},
			{"26-35", 1.3},
			{"36-45", 1.2},
			{"46-55", 1.0},
			{"55+", 0.8},
		}},
		Gender: Dimension{Name: "gender", Levels: []Level{
			{"Male", 1.05},
			{"Female", 0.95},
		}},
		CardType: Dimension{Name: "card_type", Levels: []Level{
			{"Gold", 1.2},
			{"Silver", 0.6},
			{"Platinum", 2.0},
		}},
	}
}
