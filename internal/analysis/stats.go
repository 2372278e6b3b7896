package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/willfong/card-spend/internal/data"
	"github.com/willfong/card-spend/internal/models"
)

// Stats is a pandas-style describe() of one column.
type Stats struct {
	Count int     `yaml:"count"`
	Mean  float64 `yaml:"mean"`
	Std   float64 `yaml:"std"`
	Min   float64 `yaml:"min"`
	P25   float64 `yaml:"p25"`
	P50   float64 `yaml:"p50"`
	P75   float64 `yaml:"p75"`
	Max   float64 `yaml:"max"`
}

// Describe summarizes xs. Std is the sample standard deviation and is 0 for
// fewer than two values. Quantiles use the empirical distribution.
func Describe(xs []float64) Stats {
	if len(xs) == 0 {
		return Stats{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s := Stats{
		Count: len(xs),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P25:   stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P75:   stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(xs) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(xs, nil)
	} else {
		s.Mean = xs[0]
	}
	return s
}

// column extracts one float column from the monthly table.
func column(monthly []models.MonthlyRecord, value func(models.MonthlyRecord) float64) []float64 {
	out := make([]float64, len(monthly))
	for i, r := range monthly {
		out[i] = value(r)
	}
	return out
}

// meanOf averages the non-nil values; nil when there are none.
func meanOf(values []*float64) *float64 {
	var xs []float64
	for _, v := range values {
		if v != nil {
			xs = append(xs, *v)
		}
	}
	if len(xs) == 0 {
		return nil
	}
	m := stat.Mean(xs, nil)
	return &m
}

// pctChange is (cur-prev)/prev in percent, nil for a zero base.
func pctChange(prev, cur float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := (cur - prev) / prev * 100
	return &v
}

// Breakdown aggregates detailed rows sharing one dimension level.
// Amounts are in thousands of INR.
type Breakdown struct {
	Name         string  `yaml:"name"`
	Records      int     `yaml:"records"`
	Total        float64 `yaml:"total_thousands_inr"`
	Mean         float64 `yaml:"mean_thousands_inr"`
	Share        float64 `yaml:"share_pct"`
	Transactions int64   `yaml:"transactions"`
}

type dimensionKey func(models.DetailedRecord) string

var (
	byCategory dimensionKey = func(r models.DetailedRecord) string { return r.Category }
	byCity     dimensionKey = func(r models.DetailedRecord) string { return r.City }
	byAge      dimensionKey = func(r models.DetailedRecord) string { return r.AgeGroup }
	byGender   dimensionKey = func(r models.DetailedRecord) string { return r.Gender }
	byCardType dimensionKey = func(r models.DetailedRecord) string { return r.CardType }
)

// breakdown groups rows by key, returning groups in the dimension's table
// order. Share is relative to the total of all rows passed in.
func breakdown(rows []models.DetailedRecord, key dimensionKey, dimension string, order *ordering) []Breakdown {
	groups := make(map[string]*Breakdown)
	var amounts []float64
	for _, r := range rows {
		name := key(r)
		g, ok := groups[name]
		if !ok {
			g = &Breakdown{Name: name}
			groups[name] = g
		}
		g.Records++
		g.Total += r.SpendingAmountThousandsINR
		g.Transactions += r.TransactionCount
		amounts = append(amounts, r.SpendingAmountThousandsINR)
	}
	total := floats.Sum(amounts)

	out := make([]Breakdown, 0, len(groups))
	for _, name := range order.sort(dimension, keys(groups)) {
		g := groups[name]
		g.Mean = g.Total / float64(g.Records)
		if total > 0 {
			g.Share = g.Total / total * 100
		}
		out = append(out, *g)
	}
	return out
}

// rankByTotal sorts groups by total descending. The sort is stable so ties
// keep table order.
func rankByTotal(groups []Breakdown) []Breakdown {
	ranked := append([]Breakdown(nil), groups...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total > ranked[j].Total })
	return ranked
}

func topN(groups []Breakdown, n int) []Breakdown {
	ranked := rankByTotal(groups)
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// ordering ranks level names by their position in the reference tables.
// Names missing from the tables sort after known ones, alphabetically.
type ordering struct {
	rank map[string]map[string]int
}

func newOrdering(tables *data.ReferenceTables) *ordering {
	o := &ordering{rank: make(map[string]map[string]int)}
	if tables == nil {
		return o
	}
	for _, d := range tables.Dimensions.All() {
		r := make(map[string]int, len(d.Levels))
		for i, name := range d.Names() {
			r[name] = i
		}
		o.rank[d.Name] = r
	}
	return o
}

func (o *ordering) sort(dimension string, names []string) []string {
	r := o.rank[dimension]
	sort.Slice(names, func(i, j int) bool {
		ri, okI := r[names[i]]
		rj, okJ := r[names[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return names[i] < names[j]
		}
	})
	return names
}
