package generator

import (
	"fmt"
	"math"
	"time"

	"github.com/willfong/card-spend/internal/generator/patterns"
	"github.com/willfong/card-spend/internal/models"
	"github.com/willfong/card-spend/internal/utils"
)

// Random stream identifiers for Random.Derive.
const (
	streamMonthly  uint64 = 1
	streamDetailed uint64 = 2
)

// MonthlyParams configures the monthly aggregate generator.
type MonthlyParams struct {
	Start       time.Time
	End         time.Time
	Segments    patterns.YearSegments
	Seasonal    patterns.SeasonalTable
	NoiseStdDev float64
}

// DefaultMonthlyParams returns the built-in model for January 2019 through July 2025.
func DefaultMonthlyParams() MonthlyParams {
	return MonthlyParams{
		Start:       time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		Segments:    patterns.NewDefaultSegments(),
		Seasonal:    patterns.NewSeasonalTable(),
		NoiseStdDev: 0.05,
	}
}

// Validate returns a *ConfigurationError describing every problem, or nil.
func (p MonthlyParams) Validate() error {
	var problems []string

	if p.End.Before(p.Start) {
		problems = append(problems, fmt.Sprintf("end date %s is before start date %s",
			FormatDate(p.End), FormatDate(p.Start)))
	}
	if p.NoiseStdDev < 0 {
		problems = append(problems, fmt.Sprintf("monthly noise stddev must be non-negative (got %g)", p.NoiseStdDev))
	}
	problems = append(problems, p.Seasonal.Validate()...)

	segErrs := p.Segments.Validate()
	problems = append(problems, segErrs...)
	if len(segErrs) == 0 && !p.End.Before(p.Start) {
		if missing := p.Segments.MissingYears(p.Start.Year(), p.End.Year()); len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("no year segment covers %v", missing))
		}
	}

	return configError(problems)
}

// MonthEnds enumerates the last day of every month whose month-end falls
// within [start, end], in ascending order.
func MonthEnds(start, end time.Time) []time.Time {
	var dates []time.Time
	cur := monthEnd(start)
	for !cur.After(end) {
		dates = append(dates, cur)
		cur = monthEnd(time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, time.UTC))
	}
	return dates
}

// monthEnd returns the last day of t's month at midnight UTC.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthlyGenerator produces the monthly aggregate series.
type MonthlyGenerator struct {
	params MonthlyParams
	rng    *utils.Random
}

// NewMonthlyGenerator creates a monthly generator. The RNG is only used as a
// root for derived per-month streams and is never advanced.
func NewMonthlyGenerator(params MonthlyParams, rng *utils.Random) *MonthlyGenerator {
	return &MonthlyGenerator{
		params: params,
		rng:    rng,
	}
}

// Generate returns one record per month-end in the configured range, with
// the growth columns filled in by ApplyGrowth.
func (g *MonthlyGenerator) Generate() ([]models.MonthlyRecord, error) {
	if err := g.params.Validate(); err != nil {
		return nil, err
	}

	dates := MonthEnds(g.params.Start, g.params.End)
	records := make([]models.MonthlyRecord, 0, len(dates))
	for _, d := range dates {
		rec, err := g.Month(d)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	ApplyGrowth(records)
	return records, nil
}

// Month generates the record for a single month-end date. Its value depends
// only on the seed, the parameters and the date, so any subset of months can
// be regenerated on its own. Growth columns are left nil.
func (g *MonthlyGenerator) Month(date time.Time) (models.MonthlyRecord, error) {
	year, month := date.Year(), int(date.Month())

	seg, ok := g.params.Segments.Find(year)
	if !ok {
		return models.MonthlyRecord{}, configError([]string{fmt.Sprintf("no year segment covers %d", year)})
	}

	cards := seg.ActiveCards(year, month)
	spend := seg.AvgSpend(month)
	seasonal := g.params.Seasonal.Factor(month)
	total := cards * spend * seasonal

	stream := g.rng.Derive(streamMonthly, uint64(models.MonthKey(date)))
	noise := stream.NormalFloat64Range(0, g.params.NoiseStdDev)
	// a draw below -1 would flip the sign; spending never goes negative
	factor := math.Max(0, 1+noise)
	total *= factor
	spend *= factor

	rec := models.NewMonthlyRecord(date)
	rec.ActiveCardsMillions = utils.Round(cards/1e6, 2)
	rec.AvgMonthlySpendINR = utils.Round(spend, 0)
	rec.SeasonalFactor = seasonal
	rec.TotalSpendingBillionINR = utils.Round(total/1e9, 2)

	return rec, nil
}
