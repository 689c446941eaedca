package binomial

import (
	"fmt"
	"math"

	"github.com/xtding233/fastbinomial/internal/errkind"
)

var (
	// ErrInvalidProbability is returned for NaN, infinite or out-of-range p.
	ErrInvalidProbability = fmt.Errorf("%w: probability must be within [0, 1]", errkind.ErrConfiguration)
	// ErrNegativeTrials is returned for n < 0.
	ErrNegativeTrials = fmt.Errorf("%w: number of trials must be non-negative", errkind.ErrConfiguration)
)

// ValidateProbability rejects NaN, infinities and values outside [0, 1].
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidProbability, p)
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidProbability, p)
	}
	return nil
}

// ValidateTrials rejects negative trial counts.
func ValidateTrials(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeTrials, n)
	}
	return nil
}
