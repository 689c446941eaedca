// Package stats summarizes batches of binomial draws.
package stats

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/generator"
)

// MaxTrials bounds RunMonteCarlo.
const MaxTrials = 1 << 24

// ErrTrials is returned for a trial count outside [0, MaxTrials].
var ErrTrials = fmt.Errorf("%w: trials must be within [0, %d]", errkind.ErrConfiguration, MaxTrials)

// Stats summarizes integer samples.
type Stats struct {
	Trials int
	Mean   float64
	Var    float64 // population variance
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Optional: raw samples if caller needs histograms/exports
	Samples []int64 `json:"-"`
}

// Summarize computes mean, variance and percentiles of xs.
func Summarize(xs []int64) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	fs := make([]float64, n)
	for i, v := range xs {
		fs[i] = float64(v)
	}
	mean, variance := stat.PopMeanVariance(fs, nil)

	slices.Sort(fs)
	q := func(p float64) float64 {
		return stat.Quantile(p, stat.LinInterp, fs, nil)
	}
	return Stats{
		Trials:  n,
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     q(0.50),
		P90:     q(0.90),
		P99:     q(0.99),
		Samples: xs,
	}
}

// RunMonteCarlo draws trials samples of Binomial(n, p) from g, in one block
// call, and summarizes them. p may be absent to use g's cached probability.
func RunMonteCarlo(g *generator.Generator, n int64, p generator.Probs, trials int) (Stats, error) {
	if trials < 0 || trials > MaxTrials {
		return Stats{}, fmt.Errorf("%w: got %d", ErrTrials, trials)
	}
	if trials == 0 {
		return Stats{}, nil
	}
	ns := make([]int64, trials)
	for i := range ns {
		ns[i] = n
	}
	r, err := g.Draw(generator.ArrayN(ns, nil), p)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(r.Data), nil
}
