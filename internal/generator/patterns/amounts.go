package patterns

import (
	"fmt"
	"math"
)

// DegeneracyPolicy decides what happens when a sampled transaction amount
// falls below the floor. A normal draw with mean 3500 and stddev 1000 goes
// non-positive roughly 3 times in 10,000, and the amount is later a divisor.
type DegeneracyPolicy string

const (
	// PolicyClamp raises the draw to the floor.
	PolicyClamp DegeneracyPolicy = "clamp"
	// PolicyRedraw samples again up to MaxRedraws times, then clamps.
	PolicyRedraw DegeneracyPolicy = "redraw"
	// PolicyFail reports the draw so the caller can abort the run.
	PolicyFail DegeneracyPolicy = "fail"
)

// DefaultMaxRedraws bounds PolicyRedraw.
const DefaultMaxRedraws = 8

// SampleOutcome describes how a sample was obtained.
type SampleOutcome int

const (
	SampleOK SampleOutcome = iota
	SampleClamped
	SampleRedrawn
	SampleDegenerate
)

// TransactionAmount is the per-transaction amount distribution in rupees:
// normal with a strictly positive floor.
type TransactionAmount struct {
	Mean       float64          `json:"mean"`
	StdDev     float64          `json:"stddev"`
	Floor      float64          `json:"floor"`
	Policy     DegeneracyPolicy `json:"policy"`
	MaxRedraws int              `json:"max_redraws"`
}

// NewTransactionAmount returns the default distribution: N(3500, 1000)
// floored at 100 rupees, clamping.
func NewTransactionAmount() TransactionAmount {
	return TransactionAmount{
		Mean:       3500,
		StdDev:     1000,
		Floor:      100,
		Policy:     PolicyClamp,
		MaxRedraws: DefaultMaxRedraws,
	}
}

// Sample draws one amount. normal must return standard normal variates.
// Under PolicyFail a degenerate draw is returned unchanged with
// SampleDegenerate; every other outcome is >= Floor.
func (ta TransactionAmount) Sample(normal func() float64) (float64, SampleOutcome) {
	v := ta.Mean + normal()*ta.StdDev
	if v >= ta.Floor {
		return v, SampleOK
	}

	switch ta.Policy {
	case PolicyFail:
		return v, SampleDegenerate
	case PolicyRedraw:
		for i := 0; i < ta.MaxRedraws; i++ {
			v = ta.Mean + normal()*ta.StdDev
			if v >= ta.Floor {
				return v, SampleRedrawn
			}
		}
	}
	return ta.Floor, SampleClamped
}

// Validate returns one message per problem.
func (ta TransactionAmount) Validate() []string {
	var errs []string
	if !(ta.Mean > 0) || math.IsInf(ta.Mean, 0) {
		errs = append(errs, fmt.Sprintf("transaction amount mean must be positive (got %g)", ta.Mean))
	}
	if ta.StdDev < 0 {
		errs = append(errs, fmt.Sprintf("transaction amount stddev must be non-negative (got %g)", ta.StdDev))
	}
	if !(ta.Floor > 0) {
		errs = append(errs, fmt.Sprintf("transaction amount floor must be positive (got %g)", ta.Floor))
	}
	switch ta.Policy {
	case PolicyClamp, PolicyFail:
	case PolicyRedraw:
		if ta.MaxRedraws < 1 {
			errs = append(errs, "transaction amount max_redraws must be at least 1 for policy redraw")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown degeneracy policy %q (want clamp, redraw or fail)", ta.Policy))
	}
	return errs
}
