package binomial

import (
	"fmt"

	"github.com/xtding233/fastbinomial/internal/errkind"
)

const (
	// DefaultTableMaxN is how many trial counts get eagerly built coefficients
	// when no WithMaxN option is given.
	DefaultTableMaxN int64 = 256
	// MaxTableN caps WithMaxN.
	MaxTableN int64 = 1 << 16
)

// ErrTableSize is returned for a WithMaxN value outside [0, MaxTableN].
var ErrTableSize = fmt.Errorf("%w: table size must be within [0, %d]", errkind.ErrConfiguration, MaxTableN)

// Table is the fixed-p acceleration structure. For every n up to MaxN it holds
// the regime constants, and in the inversion regime the CDF breakpoints, so a
// draw costs only the sampling loop. Larger n are served with per-call setup
// from the p-level constants. A Table is immutable once built and may be read
// by several goroutines, each with its own BitSource.
type Table struct {
	pc     probConst
	maxN   int64
	coeffs []coeffs // indexed by n; entries 0 and the q == 0 case are unused
}

type tableOptions struct {
	maxN int64
}

// TableOption configures Build.
type TableOption func(*tableOptions)

// WithMaxN sets the largest n whose coefficients are precomputed.
func WithMaxN(n int64) TableOption {
	return func(o *tableOptions) {
		o.maxN = n
	}
}

// Build validates p and precomputes its table.
func Build(p float64, opts ...TableOption) (*Table, error) {
	if err := ValidateProbability(p); err != nil {
		return nil, err
	}
	o := tableOptions{maxN: DefaultTableMaxN}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxN < 0 || o.maxN > MaxTableN {
		return nil, fmt.Errorf("%w: got %d", ErrTableSize, o.maxN)
	}

	t := &Table{pc: newProbConst(p), maxN: o.maxN}
	if t.pc.q == 0 {
		// Degenerate: every draw is 0 or n, nothing to precompute.
		return t, nil
	}
	t.coeffs = make([]coeffs, o.maxN+1)
	for n := int64(1); n <= o.maxN; n++ {
		c := newCoeffs(n, &t.pc)
		if c.inverse {
			c.buildBreakpoints()
		}
		t.coeffs[n] = c
	}
	return t, nil
}

// MustBuild is Build for probabilities known to be valid. It panics on error.
func MustBuild(p float64, opts ...TableOption) *Table {
	t, err := Build(p, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// P returns the table's probability.
func (t *Table) P() float64 { return t.pc.p }

// MaxN returns the largest n with precomputed coefficients.
func (t *Table) MaxN() int64 { return t.maxN }

// Trivial reports whether a draw for n is fully determined without consuming
// bits, and returns that value.
func (t *Table) Trivial(n int64) (int64, bool) {
	if n == 0 || t.pc.q == 0 {
		return reflect(n, 0, t.pc.flip), true
	}
	return 0, false
}

// Sample draws one Binomial(n, P()) variate. n must be non-negative; callers
// validate trial counts before sampling.
func (t *Table) Sample(n int64, src BitSource) int64 {
	if k, ok := t.Trivial(n); ok {
		return k
	}
	if n <= t.maxN {
		return reflect(n, t.coeffs[n].sample(src), t.pc.flip)
	}
	c := newCoeffs(n, &t.pc)
	return reflect(n, c.sample(src), t.pc.flip)
}
