package generator

import (
	"context"
	"fmt"
	"math"

	"github.com/willfong/card-spend/internal/generator/patterns"
	"github.com/willfong/card-spend/internal/models"
	"github.com/willfong/card-spend/internal/utils"
)

// DetailParams configures the detailed transaction expander.
type DetailParams struct {
	Dimensions  patterns.Dimensions
	NoiseStdDev float64
	Amount      patterns.TransactionAmount

	// TotalScale converts the monthly total (billions) into the reporting unit
	// before shares are applied. AmountScale converts the reporting unit into
	// rupees for transaction counts and averages.
	TotalScale  float64
	AmountScale float64

	// Records at or below Threshold (reporting unit, after rounding) are dropped
	Threshold float64

	// Workers is the number of months expanded concurrently (0 = NumCPU)
	Workers int
}

// DefaultDetailParams returns the built-in expansion settings.
func DefaultDetailParams() DetailParams {
	return DetailParams{
		Dimensions:  patterns.NewDefaultDimensions(),
		NoiseStdDev: 0.1,
		Amount:      patterns.NewTransactionAmount(),
		TotalScale:  1.0,
		AmountScale: 1000,
		Threshold:   0.01,
	}
}

// Validate returns a *ConfigurationError describing every problem, or nil.
func (p DetailParams) Validate() error {
	var problems []string
	problems = append(problems, p.Dimensions.Validate()...)
	problems = append(problems, p.Amount.Validate()...)
	if p.NoiseStdDev < 0 {
		problems = append(problems, fmt.Sprintf("detail noise stddev must be non-negative (got %g)", p.NoiseStdDev))
	}
	if !(p.TotalScale > 0) {
		problems = append(problems, fmt.Sprintf("total scale must be positive (got %g)", p.TotalScale))
	}
	if !(p.AmountScale > 0) {
		problems = append(problems, fmt.Sprintf("amount scale must be positive (got %g)", p.AmountScale))
	}
	if p.Threshold < 0 {
		problems = append(problems, fmt.Sprintf("threshold must be non-negative (got %g)", p.Threshold))
	}
	if p.Workers < 0 {
		problems = append(problems, "workers must be non-negative")
	}
	return configError(problems)
}

// ExpansionStats counts what happened during an expansion.
type ExpansionStats struct {
	Months       int   `yaml:"months"`
	Combinations int64 `yaml:"combinations"`
	Emitted      int64 `yaml:"emitted"`
	Discarded    int64 `yaml:"discarded"`
	Clamped      int64 `yaml:"clamped_amounts"`
	Redrawn      int64 `yaml:"redrawn_amounts"`
}

func (s *ExpansionStats) add(o ExpansionStats) {
	s.Months += o.Months
	s.Combinations += o.Combinations
	s.Emitted += o.Emitted
	s.Discarded += o.Discarded
	s.Clamped += o.Clamped
	s.Redrawn += o.Redrawn
}

// DetailedExpander apportions each monthly total across the dimension
// cross-product.
type DetailedExpander struct {
	params   DetailParams
	rng      *utils.Random
	progress func(done, total int)
}

// NewDetailedExpander creates an expander. The RNG is only used as a root for
// derived per-month streams and is never advanced.
func NewDetailedExpander(params DetailParams, rng *utils.Random) *DetailedExpander {
	return &DetailedExpander{
		params: params,
		rng:    rng,
	}
}

// OnProgress registers a callback invoked after each month completes.
// It may be called from several goroutines, but never concurrently.
func (e *DetailedExpander) OnProgress(fn func(done, total int)) {
	e.progress = fn
}

// Expand expands every monthly record. Output is ordered by month, then by
// combination, and is identical for any worker count. An empty input yields
// an empty output.
func (e *DetailedExpander) Expand(ctx context.Context, monthly []models.MonthlyRecord) ([]models.DetailedRecord, ExpansionStats, error) {
	if err := e.params.Validate(); err != nil {
		return nil, ExpansionStats{}, err
	}
	if len(monthly) == 0 {
		return []models.DetailedRecord{}, ExpansionStats{}, nil
	}

	results, err := runMonthPool(ctx, len(monthly), GetWorkerCount(e.params.Workers), e.progress,
		func(i int) ([]models.DetailedRecord, ExpansionStats, error) {
			return e.ExpandMonth(monthly[i])
		})
	if err != nil {
		return nil, ExpansionStats{}, err
	}

	var stats ExpansionStats
	total := 0
	for _, r := range results {
		total += len(r.records)
	}
	records := make([]models.DetailedRecord, 0, total)
	for _, r := range results {
		records = append(records, r.records...)
		stats.add(r.stats)
	}

	return records, stats, nil
}

// ExpandMonth expands a single monthly record. Draws come from a stream
// derived from the record's month, consumed in combination order: the
// spending noise, then the transaction amount.
func (e *DetailedExpander) ExpandMonth(rec models.MonthlyRecord) ([]models.DetailedRecord, ExpansionStats, error) {
	p := e.params
	ds := p.Dimensions
	n := ds.Combinations()

	monthKey := models.MonthKey(rec.Date)
	stream := e.rng.Derive(streamDetailed, uint64(monthKey))
	scaled := rec.TotalSpendingBillionINR * p.TotalScale

	stats := ExpansionStats{Months: 1, Combinations: int64(n)}
	out := make([]models.DetailedRecord, 0, n)

	for idx := 0; idx < n; idx++ {
		c := ds.Combination(idx)

		base := scaled * c.Category.Weight * c.City.Weight
		base = base * c.AgeGroup.Weight * c.Gender.Weight * c.CardType.Weight

		noise := stream.NormalFloat64Range(1, p.NoiseStdDev)
		amount := utils.Round(math.Max(0, base*noise), 2)

		avgTxn, outcome := p.Amount.Sample(stream.NormalFloat64)
		switch outcome {
		case patterns.SampleClamped:
			stats.Clamped++
		case patterns.SampleRedrawn:
			stats.Redrawn++
		case patterns.SampleDegenerate:
			return nil, stats, &NumericDegeneracyError{
				MonthKey:    monthKey,
				Combination: idx,
				Draw:        avgTxn,
				Floor:       p.Amount.Floor,
			}
		}

		if amount <= p.Threshold {
			stats.Discarded++
			continue
		}

		count := int64(amount * p.AmountScale / avgTxn)
		if count < 1 {
			count = 1
		}

		out = append(out, models.DetailedRecord{
			Date:                       rec.Date,
			Year:                       rec.Year,
			Month:                      rec.Month,
			Category:                   c.Category.Name,
			City:                       c.City.Name,
			AgeGroup:                   c.AgeGroup.Name,
			Gender:                     c.Gender.Name,
			CardType:                   c.CardType.Name,
			SpendingAmountThousandsINR: amount,
			TransactionCount:           count,
			AvgTransactionAmountINR:    utils.Round(amount*p.AmountScale/float64(count), 2),
		})
		stats.Emitted++
	}

	return out, stats, nil
}
