package analysis

import (
	"sort"

	"github.com/willfong/card-spend/internal/models"
)

// CategoryGrowth compares a category's spending in the two latest years.
type CategoryGrowth struct {
	Name     string   `yaml:"name"`
	Previous float64  `yaml:"previous_thousands_inr"`
	Latest   float64  `yaml:"latest_thousands_inr"`
	Growth   *float64 `yaml:"growth_pct"`
}

// TrendRow is one category's spending per year of TrendMatrix.Years.
type TrendRow struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values_thousands_inr"`
}

// TrendMatrix is yearly spending of the top categories.
type TrendMatrix struct {
	Years []int      `yaml:"years"`
	Rows  []TrendRow `yaml:"rows"`
}

// Categories ranks spending categories.
type Categories struct {
	Top          []Breakdown      `yaml:"top"`
	All          []Breakdown      `yaml:"all"`
	LatestYear   int              `yaml:"latest_year"`
	PreviousYear int              `yaml:"previous_year,omitempty"`
	Growth       []CategoryGrowth `yaml:"growth,omitempty"`
	Trend        TrendMatrix      `yaml:"trend"`
}

// AnalyzeCategories ranks categories by total spending, compares the latest
// year against the one before it, and tabulates yearly spending of the top
// categories.
func AnalyzeCategories(detailed []models.DetailedRecord, top int, order *ordering) *Categories {
	all := breakdown(detailed, byCategory, "category", order)
	c := &Categories{
		Top: topN(all, top),
		All: rankByTotal(all),
	}

	years := yearsOf(detailed)
	if len(years) == 0 {
		return c
	}
	c.LatestYear = years[len(years)-1]

	perYear := make(map[int]map[string]float64, len(years))
	for _, r := range detailed {
		m, ok := perYear[r.Year]
		if !ok {
			m = make(map[string]float64)
			perYear[r.Year] = m
		}
		m[r.Category] += r.SpendingAmountThousandsINR
	}

	if len(years) > 1 {
		c.PreviousYear = years[len(years)-2]
		for _, b := range all {
			prev, cur := perYear[c.PreviousYear][b.Name], perYear[c.LatestYear][b.Name]
			c.Growth = append(c.Growth, CategoryGrowth{
				Name:     b.Name,
				Previous: prev,
				Latest:   cur,
				Growth:   pctChange(prev, cur),
			})
		}
		sort.SliceStable(c.Growth, func(i, j int) bool {
			gi, gj := c.Growth[i].Growth, c.Growth[j].Growth
			if gi == nil || gj == nil {
				return gi != nil
			}
			return *gi > *gj
		})
	}

	c.Trend.Years = years
	for _, b := range c.Top {
		row := TrendRow{Name: b.Name, Values: make([]float64, len(years))}
		for i, y := range years {
			row.Values[i] = perYear[y][b.Name]
		}
		c.Trend.Rows = append(c.Trend.Rows, row)
	}
	return c
}

// Demographics breaks spending down by customer attributes, in table order.
type Demographics struct {
	AgeGroups []Breakdown `yaml:"age_groups"`
	Genders   []Breakdown `yaml:"genders"`
	CardTypes []Breakdown `yaml:"card_types"`
}

// AnalyzeDemographics aggregates by age group, gender and card type.
func AnalyzeDemographics(detailed []models.DetailedRecord, order *ordering) *Demographics {
	return &Demographics{
		AgeGroups: breakdown(detailed, byAge, "age_group", order),
		Genders:   breakdown(detailed, byGender, "gender", order),
		CardTypes: breakdown(detailed, byCardType, "card_type", order),
	}
}

// Geography ranks cities by total spending.
type Geography struct {
	Cities []Breakdown `yaml:"cities"`
}

// AnalyzeGeography aggregates by city.
func AnalyzeGeography(detailed []models.DetailedRecord, order *ordering) *Geography {
	return &Geography{Cities: rankByTotal(breakdown(detailed, byCity, "city", order))}
}

// yearsOf returns the distinct years in ascending order.
func yearsOf(detailed []models.DetailedRecord) []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range detailed {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}
