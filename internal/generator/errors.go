package generator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid generator configuration")

	// ErrNumericDegeneracy is matched by every *NumericDegeneracyError.
	ErrNumericDegeneracy = errors.New("degenerate transaction amount")
)

// ConfigurationError lists every problem found in generator parameters.
// It is returned before any record is generated.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration error: " + e.Problems[0]
	}
	return "configuration errors:\n  - " + strings.Join(e.Problems, "\n  - ")
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// configError returns nil for an empty list.
func configError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ConfigurationError{Problems: problems}
}

// NumericDegeneracyError reports a transaction amount draw below the floor
// under the fail policy.
type NumericDegeneracyError struct {
	MonthKey    int
	Combination int
	Draw        float64
	Floor       float64
}

func (e *NumericDegeneracyError) Error() string {
	return fmt.Sprintf("transaction amount draw %.2f below floor %.2f (month %04d-%02d, combination %d)",
		e.Draw, e.Floor, e.MonthKey/12, e.MonthKey%12+1, e.Combination)
}

func (e *NumericDegeneracyError) Is(target error) bool {
	return target == ErrNumericDegeneracy
}
