package binomial

import (
	"math"
	"sort"
)

func newInversionCoeffs(n int64, mean float64, pc *probConst) coeffs {
	bound := int64(mean + 10*math.Sqrt(mean*(1-pc.q)+1))
	if bound > n {
		bound = n
	}
	return coeffs{
		n:       n,
		inverse: true,
		f0:      math.Exp(float64(n) * pc.l1mq),
		r:       pc.r,
		bound:   bound,
	}
}

// walk is sequential inversion: subtract pmf terms from one uniform until it
// is exhausted.
func (c *coeffs) walk(src BitSource) int64 {
	for {
		u := src.Float64()
		px := c.f0
		var k int64
		for u > px {
			k++
			if k > c.bound {
				break
			}
			u -= px
			px *= float64(c.n-k+1) / float64(k) * c.r
		}
		if k <= c.bound {
			return k
		}
	}
}

// buildBreakpoints fills cdf with the cumulative pmf up to bound, using the
// same recurrence as walk.
func (c *coeffs) buildBreakpoints() {
	cdf := make([]float64, c.bound+1)
	px, acc := c.f0, 0.0
	for k := int64(0); k <= c.bound; k++ {
		if k > 0 {
			px *= float64(c.n-k+1) / float64(k) * c.r
		}
		acc += px
		cdf[k] = acc
	}
	c.cdf = cdf
}

// search is inversion over the precomputed breakpoints: the smallest k with
// u <= P(X <= k). Uniforms beyond the last breakpoint are redrawn, matching
// the restart in walk.
func (c *coeffs) search(src BitSource) int64 {
	last := c.cdf[len(c.cdf)-1]
	for {
		u := src.Float64()
		if u <= last {
			return int64(sort.SearchFloat64s(c.cdf, u))
		}
	}
}
