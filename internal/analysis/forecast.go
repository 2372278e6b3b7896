package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/generator/patterns"
	"github.com/willfong/card-spend/internal/models"
)

// Monthly growth assumed for active cards beyond the last observed month.
const projectedCardsGrowth = 0.01

// Regression features, after the intercept.
var forecastFeatures = []string{
	"days_since_start",
	"month_sin",
	"month_cos",
	"active_cards_millions",
	"seasonal_factor",
}

// ForecastOptions controls ForecastSpending.
type ForecastOptions struct {
	TestMonths int
	Horizon    int
	Seasonal   patterns.SeasonalTable
}

// Coefficient is one fitted regression weight.
type Coefficient struct {
	Feature string  `yaml:"feature"`
	Value   float64 `yaml:"value"`
}

// Prediction is a forecast value for one month-end.
type Prediction struct {
	Date           string   `yaml:"date"`
	Predicted      float64  `yaml:"predicted_billion_inr"`
	Actual         *float64 `yaml:"actual_billion_inr,omitempty"`
	ActiveCards    float64  `yaml:"active_cards_millions"`
	SeasonalFactor float64  `yaml:"seasonal_factor"`
}

// Forecast holds the fitted model, its holdout accuracy and the projection.
type Forecast struct {
	TrainMonths  int           `yaml:"train_months"`
	TestMonths   int           `yaml:"test_months"`
	MAE          float64       `yaml:"mae_billion_inr"`
	RMSE         float64       `yaml:"rmse_billion_inr"`
	R2           *float64      `yaml:"r2"`
	Coefficients []Coefficient `yaml:"coefficients"`
	Holdout      []Prediction  `yaml:"holdout"`
	Projection   []Prediction  `yaml:"projection"`
}

// ForecastSpending fits total spending by ordinary least squares on elapsed
// days, the month's position on the unit circle, active cards and the
// seasonal factor. The last TestMonths rows are held out to score the model.
// The projection refits on every row and extends Horizon months past the
// last one, compounding active cards by 1% a month.
func ForecastSpending(monthly []models.MonthlyRecord, opts ForecastOptions) (*Forecast, error) {
	p := len(forecastFeatures) + 1
	train := len(monthly) - opts.TestMonths
	if opts.TestMonths < 1 || train < p {
		return nil, fmt.Errorf("%w: forecast needs at least %d training months plus %d held out, have %d months",
			ErrInsufficientData, p, opts.TestMonths, len(monthly))
	}

	origin := monthly[0].Date
	x, y := design(monthly, origin)

	beta, err := fitOLS(x.Slice(0, train, 0, p), y[:train])
	if err != nil {
		return nil, err
	}

	f := &Forecast{TrainMonths: train, TestMonths: opts.TestMonths}
	for i, name := range append([]string{"intercept"}, forecastFeatures...) {
		f.Coefficients = append(f.Coefficients, Coefficient{Feature: name, Value: beta.AtVec(i)})
	}

	actual := y[train:]
	predicted := make([]float64, len(actual))
	var absSum, sqSum float64
	for i := range actual {
		row := train + i
		predicted[i] = mat.Dot(x.RowView(row), beta)
		diff := predicted[i] - actual[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff

		r := monthly[row]
		f.Holdout = append(f.Holdout, Prediction{
			Date:           r.Date.Format(generator.DateLayout),
			Predicted:      predicted[i],
			Actual:         &actual[i],
			ActiveCards:    r.ActiveCardsMillions,
			SeasonalFactor: r.SeasonalFactor,
		})
	}
	n := float64(len(actual))
	f.MAE = absSum / n
	f.RMSE = math.Sqrt(sqSum / n)
	if r2 := stat.RSquaredFrom(predicted, actual, nil); !math.IsNaN(r2) && !math.IsInf(r2, 0) {
		f.R2 = &r2
	}

	if opts.Horizon == 0 {
		return f, nil
	}
	full, err := fitOLS(x, y)
	if err != nil {
		return nil, err
	}
	last := monthly[len(monthly)-1]
	cards := last.ActiveCardsMillions
	for i := 1; i <= opts.Horizon; i++ {
		d := time.Date(last.Date.Year(), last.Date.Month()+time.Month(i)+1, 0, 0, 0, 0, 0, time.UTC)
		cards *= 1 + projectedCardsGrowth
		seasonal := opts.Seasonal.FactorForDate(d)
		row := mat.NewVecDense(p, features(d, origin, cards, seasonal))
		f.Projection = append(f.Projection, Prediction{
			Date:           d.Format(generator.DateLayout),
			Predicted:      mat.Dot(row, full),
			ActiveCards:    cards,
			SeasonalFactor: seasonal,
		})
	}
	return f, nil
}

// design builds the regression matrix with a leading intercept column.
func design(monthly []models.MonthlyRecord, origin time.Time) (*mat.Dense, []float64) {
	p := len(forecastFeatures) + 1
	x := mat.NewDense(len(monthly), p, nil)
	y := make([]float64, len(monthly))
	for i, r := range monthly {
		x.SetRow(i, features(r.Date, origin, r.ActiveCardsMillions, r.SeasonalFactor))
		y[i] = r.TotalSpendingBillionINR
	}
	return x, y
}

func features(d, origin time.Time, cards, seasonal float64) []float64 {
	angle := 2 * math.Pi * float64(d.Month()) / 12
	return []float64{
		1,
		d.Sub(origin).Hours() / 24,
		math.Sin(angle),
		math.Cos(angle),
		cards,
		seasonal,
	}
}

// fitOLS solves the least-squares problem x·beta ≈ y by QR. A poorly
// conditioned design is accepted; a singular one is an error.
func fitOLS(x mat.Matrix, y []float64) (*mat.VecDense, error) {
	var beta mat.VecDense
	if err := beta.SolveVec(x, mat.NewVecDense(len(y), y)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("regression failed: %w", err)
		}
	}
	return &beta, nil
}
